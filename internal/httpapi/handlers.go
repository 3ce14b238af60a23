package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	conf "github.com/bartek5186/cennik/internal/config"
	"github.com/bartek5186/cennik/internal/importer"
)

var errBadRequest = errors.New("niepoprawne żądanie")

// handleStage: multipart z polem "file" albo formularz z polem "text".
func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	supplierID, err := strconv.ParseUint(chi.URLParam(r, "supplierID"), 10, 64)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: supplierID", importer.ErrInvalidSupplier))
		return
	}
	actor, err := actorID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(s.maxUpload)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: plik za duży albo uszkodzony formularz", errBadRequest))
		return
	}

	req := importer.StageRequest{SupplierID: uint(supplierID), ActorID: actor}

	if v := strings.TrimSpace(r.FormValue("file_discount")); v != "" {
		d, err := decimal.NewFromString(strings.Replace(v, ",", ".", 1))
		if err != nil {
			s.respondError(w, r, fmt.Errorf("%w: file_discount=%q", importer.ErrInvalidDiscount, v))
			return
		}
		req.FileDiscount = d
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("%w: odczyt pliku", errBadRequest))
			return
		}
		req.Data = data
		req.Filename = header.Filename
		req.MIME = header.Header.Get("Content-Type")
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		req.Text = r.FormValue("text")
		if v := r.FormValue("delimiter"); v != "" {
			if req.Delimiter = conf.DelimiterRune(v); req.Delimiter == 0 {
				s.respondError(w, r, fmt.Errorf("%w: delimiter=%q", errBadRequest, v))
				return
			}
		}
	default:
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	res, err := s.svc.Stage(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	view, err := s.svc.Run(r.Context(), res.Token)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", runPath(res.Token))
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Run(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	var m importer.Mapping
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	res, err := s.svc.FinalizeMapping(r.Context(), chi.URLParam(r, "token"), m)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Match(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.Rows(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.History(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleApply: ponowne zatwierdzenie to przekierowanie do runu, nie błąd
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	actor, err := actorID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.svc.Apply(r.Context(), token, actor)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if res.AlreadyApplied {
		http.Redirect(w, r, runPath(token), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func actorID(r *http.Request) (*uint, error) {
	v := strings.TrimSpace(r.Header.Get(ActorHeader))
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", errBadRequest, ActorHeader, v)
	}
	u := uint(id)
	return &u, nil
}

func runPath(token string) string { return "/api/runs/" + token }
