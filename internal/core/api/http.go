package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
)

// maxBodyBytes bounds request bodies; trajectories are the largest payloads.
const maxBodyBytes = 8 << 20

// NewHTTPHandler exposes the service as JSON over HTTP.
//
//	GET  /api/transform/available-paths?source_crs=&target_crs=
//	POST /api/transform/direct
//	POST /api/transform/via
//	POST /api/transform/trajectory
//	POST /api/transform/custom
//	POST /api/transform/vertical
//	POST /api/transform/well-point
//	POST /api/transform/well-batch
//	POST /api/transform/local-offset
//	GET  /api/transform/accuracy?source_crs=&target_crs=
//	GET  /api/transform/required-grids?source_crs=&target_crs=
//	GET  /api/crs/units/{code}
//	GET  /api/crs/search?text=&crs_type=&limit=
//	POST /api/crs/normalize
//	POST /api/crs/match
//	POST /api/calculate/factors
//	GET  /healthz
//	GET  /metrics
func NewHTTPHandler(s TransformServer, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/transform", func(api chi.Router) {
		api.Get("/available-paths", query(s.Paths, func(r *http.Request) (*PathsRequest, error) {
			return &PathsRequest{SourceCRS: r.URL.Query().Get("source_crs"), TargetCRS: r.URL.Query().Get("target_crs")}, nil
		}))
		api.Post("/direct", body(s.Direct))
		api.Post("/via", body(s.Via))
		api.Post("/trajectory", body(s.Trajectory))
		api.Post("/custom", body(s.Custom))
		api.Post("/vertical", body(s.Vertical))
		api.Post("/well-point", body(s.WellPoint))
		api.Post("/well-batch", body(s.WellBatch))
		api.Post("/local-offset", body(s.LocalOffsets))
		api.Get("/accuracy", query(s.Accuracy, func(r *http.Request) (*AccuracyRequest, error) {
			return &AccuracyRequest{SourceCRS: r.URL.Query().Get("source_crs"), TargetCRS: r.URL.Query().Get("target_crs")}, nil
		}))
		api.Get("/required-grids", query(s.RequiredGrids, func(r *http.Request) (*RequiredGridsRequest, error) {
			return &RequiredGridsRequest{SourceCRS: r.URL.Query().Get("source_crs"), TargetCRS: r.URL.Query().Get("target_crs")}, nil
		}))
	})

	r.Route("/api/crs", func(api chi.Router) {
		api.Get("/units/{code}", query(s.Units, func(r *http.Request) (*UnitsRequest, error) {
			return &UnitsRequest{Code: chi.URLParam(r, "code")}, nil
		}))
		api.Get("/search", query(s.Search, func(r *http.Request) (*SearchRequest, error) {
			q := r.URL.Query()
			req := &SearchRequest{Text: q.Get("text"), Kind: q.Get("crs_type")}
			if raw := q.Get("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return nil, fmt.Errorf("%w: limit: %v", ErrInvalidRequest, err)
				}
				req.Limit = n
			}
			return req, nil
		}))
		api.Post("/normalize", body(s.Normalize))
		api.Post("/match", body(s.Match))
	})

	r.Post("/api/calculate/factors", body(s.Factors))

	return r
}

// body decodes a JSON request body and runs call.
func body[Req, Resp any](call func(context.Context, *Req) (*Resp, error)) http.HandlerFunc {
	return query(call, func(r *http.Request) (*Req, error) {
		in := new(Req)
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return in, nil
	})
}

// query builds the request with parse and runs call.
func query[Req, Resp any](call func(context.Context, *Req) (*Resp, error), parse func(*http.Request) (*Req, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := parse(r)
		if err != nil {
			writeError(w, err)
			return
		}
		resp, err := call(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// writeJSON encodes v before committing the status so an unencodable
// response becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		code = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(ErrorBody{
			Error: fmt.Sprintf("encode response: %v", err),
			Code:  codes.Internal.String(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), errorBody(err))
}
