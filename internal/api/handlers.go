package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"querybridge/internal/bridge"
	"querybridge/internal/dialect"
	"querybridge/internal/join"
)

type dialectInfo struct {
	Dialect  dialect.Dialect   `json:"dialect"`
	Label    string            `json:"label"`
	Insights []dialect.Insight `json:"insights"`
}

func (s *Server) handleDialects(w http.ResponseWriter, r *http.Request) {
	reg := s.db.Registry()
	out := []dialectInfo{}
	for _, d := range reg.Dialects() {
		def := reg.DefinitionFor(d)
		insights := def.Insights
		if insights == nil {
			insights = []dialect.Insight{}
		}
		out = append(out, dialectInfo{Dialect: d, Label: def.Label, Insights: insights})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.db.ListConnections(r.Context()))
}

// handleImport accepts a multipart "file" field, or a raw body named by
// the filename query parameter.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	var (
		filename string
		data     []byte
		err      error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			writeError(w, http.StatusBadRequest, "missing file: "+ferr.Error())
			return
		}
		defer file.Close()
		filename = header.Filename
		data, err = io.ReadAll(file)
	} else {
		filename = r.URL.Query().Get("filename")
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	conn, err := s.db.ImportFile(r.Context(), filename, data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

// credential resolves the {id} path variable against the host's saved
// credentials.
func (s *Server) credential(r *http.Request) (string, *bridge.Credential) {
	id := mux.Vars(r)["id"]
	return id, s.db.CredentialFor(r.Context(), id)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	id, cred := s.credential(r)
	writeJSON(w, http.StatusOK, s.db.SchemaFor(r.Context(), id, cred))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id, cred := s.credential(r)
	writeJSON(w, http.StatusOK, s.db.StatsFor(r.Context(), id, cred))
}

type queryRequest struct {
	SQL       string `json:"sql"`
	RequestID string `json:"requestId"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return req, false
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, http.StatusBadRequest, "sql is required")
		return req, false
	}
	return req, true
}

// handleQuery answers 200 even when the query failed: the error travels
// in the result.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, s.db.ExecuteQuery(r.Context(), id, req.SQL, req.RequestID))
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	id, cred := s.credential(r)
	writeJSON(w, http.StatusOK, s.db.ExplainQuery(r.Context(), id, cred, req.SQL))
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ictx := dialect.InsightContext(r.URL.Query().Get("context"))
	switch ictx {
	case "", dialect.ContextServer, dialect.ContextDatabase:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown insight context %q", ictx))
		return
	}
	id, cred := s.credential(r)
	writeJSON(w, http.StatusOK, s.db.RefreshInsights(r.Context(), id, cred, ictx))
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	id, cred := s.credential(r)
	writeJSON(w, http.StatusOK, s.db.KillSession(r.Context(), id, cred, mux.Vars(r)["session"]))
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	id, cred := s.credential(r)
	writeJSON(w, http.StatusOK, s.db.RebuildTable(r.Context(), id, cred, mux.Vars(r)["table"]))
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	id, cred := s.credential(r)
	writeJSON(w, http.StatusOK, s.db.Advise(r.Context(), id, cred))
}

type composeRequest struct {
	SQL    string   `json:"sql"`
	Tables []string `json:"tables"`
}

type composeResponse struct {
	SQL  string    `json:"sql"`
	Plan join.Plan `json:"plan"`
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if len(req.Tables) == 0 {
		writeError(w, http.StatusBadRequest, "tables is required")
		return
	}
	id, cred := s.credential(r)
	sql, plan := join.Compose(req.SQL, s.db.SchemaFor(r.Context(), id, cred), req.Tables)
	writeJSON(w, http.StatusOK, composeResponse{SQL: sql, Plan: plan})
}
