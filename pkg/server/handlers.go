package server

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/tahmid-khan/cvc-approximation/pkg/canon"
	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/format"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
	"github.com/tahmid-khan/cvc-approximation/pkg/render"
)

// CodeRejected is the error code of a graph refused by the validator.
const CodeRejected = "REJECTED"

// Response headers of /v1/canonical.
const (
	HeaderOrder     = "X-Graph-Order"
	HeaderSize      = "X-Graph-Size"
	HeaderMaxDegree = "X-Graph-Max-Degree"
	HeaderAvgDegree = "X-Graph-Avg-Degree"
	HeaderDensity   = "X-Graph-Density"
	HeaderCache     = "X-Cache"
)

func (s *Server) canonical(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set(HeaderOrder, strconv.Itoa(res.Order))
	h.Set(HeaderSize, strconv.Itoa(res.Size))
	h.Set(HeaderMaxDegree, strconv.Itoa(res.Summary.MaxDegree))
	h.Set(HeaderAvgDegree, strconv.FormatFloat(res.Summary.AvgDegree, 'g', -1, 64))
	h.Set(HeaderDensity, strconv.FormatFloat(res.Summary.Density, 'g', -1, 64))
	if res.CacheHit {
		h.Set(HeaderCache, "hit")
	} else {
		h.Set(HeaderCache, "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Text)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	output := r.URL.Query().Get("output")
	if output == "" {
		output = "svg"
	}
	if output != "svg" && output != "dot" {
		writeError(w, errs.New(errs.ErrCodeInvalidInput, "invalid output %q (must be svg or dot)", output))
		return
	}

	res, ok := s.run(w, r)
	if !ok {
		return
	}
	g, err := canon.Unmarshal(res.Text)
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "read canonical graph"))
		return
	}
	dot := render.ToDOT(g, render.Options{})
	if output == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = io.WriteString(w, dot)
		return
	}
	svg, err := render.RenderSVG(dot)
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "render"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// run canonicalizes the request body. On failure it writes the error
// response and returns false.
func (s *Server) run(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	name, opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Code:    string(errs.ErrCodeInvalidInput),
				Message: "request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
			})
			return nil, false
		}
		writeError(w, errs.Wrap(errs.ErrCodeUnreadable, err, "read request body"))
		return nil, false
	}

	res, err := s.runner.Canonical(r.Context(), name, data, opts)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if !res.Accepted() {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Code: CodeRejected, Message: res.Rejection.Error()})
		return nil, false
	}
	return res, true
}

// requestOptions resolves the file name and pipeline options of a request
// from its query parameters over the server defaults.
func (s *Server) requestOptions(r *http.Request) (string, pipeline.Options, error) {
	q := r.URL.Query()
	opts := s.opts

	name := path.Base(q.Get("name"))
	if name == "." || name == "/" {
		name = "upload"
	}
	if f := q.Get("format"); f != "" {
		ft, err := format.ParseFormat(f)
		if err != nil {
			return "", opts, err
		}
		name = strings.TrimSuffix(name, path.Ext(name)) + ft.Extension()
	}
	if _, err := format.Detect(name); err != nil {
		return "", opts, errs.New(errs.ErrCodeUnsupportedFormat, "cannot tell the format of %q; pass format=mtx or format=edges", name)
	}

	if o := q.Get("ordering"); o != "" {
		ord, err := canon.ParseOrdering(o)
		if err != nil {
			return "", opts, err
		}
		opts.Ordering = ord
	}
	// The defaults are shared by every request.
	rules := *opts.Rules
	opts.Rules = &rules
	for param, dst := range map[string]*int{
		"min_order": &rules.MinOrder,
		"max_order": &rules.MaxOrder,
	} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return "", opts, errs.New(errs.ErrCodeInvalidInput, "invalid %s %q", param, v)
		}
		*dst = n
	}
	if opts.Rules.MaxOrder > 0 && opts.Rules.MaxOrder < opts.Rules.MinOrder {
		return "", opts, errs.New(errs.ErrCodeInvalidInput, "max_order %d is below min_order %d", opts.Rules.MaxOrder, opts.Rules.MinOrder)
	}
	if q.Has("integer_labels") {
		opts.IntegerLabels = q.Get("integer_labels") != "false"
	}
	if q.Has("refresh") {
		opts.Refresh = q.Get("refresh") != "false"
	}
	return name, opts, nil
}
