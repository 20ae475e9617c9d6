package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/feedback"
	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/render"
	"github.com/amrsdek/MedMate-App/internal/session"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxTextBytes    = 4 << 20
)

var errRunPanicked = eris.New("server: conversion aborted unexpectedly")

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	type category struct {
		Name  string `json:"name"`
		Label string `json:"label"`
	}
	var out []category
	for _, name := range s.catalog.CategoryNames() {
		out = append(out, category{Name: name, Label: s.catalog.Label(model.Category(name))})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
}

// convertRequest is the parsed multipart form of a conversion.
type convertRequest struct {
	batch model.Batch
	instr model.Instructions
	title string
	mode  model.Mode
}

func (s *Server) parseConvert(w http.ResponseWriter, r *http.Request) (*convertRequest, int, error) {
	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d MB", s.cfg.MaxUploadMB)
		}
		return nil, http.StatusBadRequest, errors.New("invalid multipart form")
	}

	req := &convertRequest{title: strings.TrimSpace(r.FormValue("title"))}

	mode, ok := model.ParseMode(r.FormValue("mode"))
	if !ok {
		return nil, http.StatusBadRequest, fmt.Errorf("unknown mode %q", r.FormValue("mode"))
	}
	req.mode = mode

	catName := r.FormValue("category")
	if catName == "" {
		catName = string(model.CategoryNotes)
	}
	cat, err := s.catalog.ParseCategory(catName)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("unknown category %q", catName)
	}
	handwritten, _ := strconv.ParseBool(r.FormValue("handwritten"))
	if r.FormValue("handwritten") == "on" {
		handwritten = true
	}
	req.instr = s.catalog.Build(cat, handwritten)

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return nil, http.StatusBadRequest, errors.New("no files uploaded")
	}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("read %s", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close() //nolint:errcheck
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("read %s", fh.Filename)
		}
		item, err := model.NewItem(fh.Filename, fh.Header.Get("Content-Type"), data)
		if err != nil {
			return nil, http.StatusUnsupportedMediaType, fmt.Errorf("%s is not an image or PDF", fh.Filename)
		}
		req.batch.Items = append(req.batch.Items, item)
	}
	return req, 0, nil
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	req, status, err := s.parseConvert(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	batch, instr, title, err := sess.Begin(&req.batch, &req.instr, &req.title)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.start(sess, batch, instr, title, req.mode)

	zap.L().Info("server: conversion accepted",
		zap.String("session", sess.ID),
		zap.String("mode", string(req.mode)),
		zap.Int("items", batch.Len()),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"session": sess.ID,
		"mode":    req.mode,
		"items":   batch.Len(),
	})
}

func (s *Server) handleRetryLocal(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	batch, instr, title, err := sess.Begin(nil, nil, nil)
	switch {
	case errors.Is(err, session.ErrNoBatch):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.start(sess, batch, instr, title, model.ModeLocalFallback)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"session": sess.ID,
		"mode":    model.ModeLocalFallback,
		"items":   batch.Len(),
	})
}

func (s *Server) handleSetText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string  `json:"text"`
		Title *string `json:"title"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTextBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := sessionFrom(r)
	if err := sess.SetText(req.Text); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if req.Title != nil {
		sess.SetTitle(strings.TrimSpace(*req.Title))
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDocx(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	start := time.Now()
	data, err := render.Render(doc)
	if err != nil {
		zap.L().Error("server: render docx", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not render document")
		return
	}
	s.observeRender("docx", start)
	writeAttachment(w, docxContentType, filename(doc.Title, "docx"), data)
}

func (s *Server) handleXlsx(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	start := time.Now()
	data, err := render.RenderTables(doc)
	if errors.Is(err, render.ErrNoTables) {
		writeError(w, http.StatusNotFound, "the document has no tables")
		return
	}
	if err != nil {
		zap.L().Error("server: render xlsx", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not render tables")
		return
	}
	s.observeRender("xlsx", start)
	writeAttachment(w, xlsxContentType, filename(doc.Title, "xlsx"), data)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	html, err := render.Preview(doc.Text())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not render preview")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		writeError(w, http.StatusServiceUnavailable, "feedback is disabled")
		return
	}
	var c model.Comment
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.ID = ""
	c.UserAgent = r.UserAgent()
	res, err := s.feedback.Submit(r.Context(), &c)
	switch {
	case errors.Is(err, feedback.ErrEmpty):
		writeError(w, http.StatusBadRequest, "feedback text is required")
	case errors.Is(err, feedback.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		zap.L().Error("server: save feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save feedback")
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) document(w http.ResponseWriter, r *http.Request) (*model.AccumulatedDocument, bool) {
	sess := sessionFrom(r)
	if sess.Snapshot().Running {
		writeError(w, http.StatusConflict, session.ErrBusy.Error())
		return nil, false
	}
	doc, err := sess.Document()
	if err != nil {
		writeError(w, http.StatusNotFound, "no document yet")
		return nil, false
	}
	return doc, true
}

func (s *Server) observeRender(format string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRender(format, start)
	}
}

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)

func filename(title, ext string) string {
	name := strings.TrimSpace(unsafeFilename.ReplaceAllString(title, ""))
	if name == "" {
		name = "medmate"
	}
	return name + "." + ext
}

func writeAttachment(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
