package remote

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/holtvcs/holt/pkg/object"
)

// Server is a minimal in-process implementation of the Holt HTTP
// protocol over an object store and a ref table. It backs `holt serve`
// and the sync tests.
type Server struct {
	mu    sync.RWMutex
	store object.Store
	refs  map[string]object.Hash
}

// NewServer creates a protocol server over the given store.
func NewServer(store object.Store) *Server {
	return &Server{
		store: store,
		refs:  make(map[string]object.Hash),
	}
}

// SetRef seeds a reference outside the protocol, for tests and for
// serving an existing repository.
func (s *Server) SetRef(name string, hash object.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[name] = hash
}

// Refs returns a snapshot of the ref table.
func (s *Server) Refs() map[string]object.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]object.Hash, len(s.refs))
	for name, hash := range s.refs {
		out[name] = hash
	}
	return out
}

// Handler returns the HTTP handler implementing the protocol routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /refs", s.handleListRefs)
	mux.HandleFunc("POST /refs", s.handleUpdateRefs)
	mux.HandleFunc("GET /objects/{hash}", s.handleGetObject)
	mux.HandleFunc("POST /objects", s.handlePushObjects)
	mux.HandleFunc("POST /objects/batch", s.handleBatchObjects)
	return mux
}

func (s *Server) handleListRefs(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make(map[string]string, len(s.refs))
	for name, hash := range s.refs {
		out[name] = string(hash)
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateRefs(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Updates []struct {
			Name string  `json:"name"`
			Old  *string `json:"old"`
			New  *string `json:"new"`
		} `json:"updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "decode ref updates: "+err.Error())
		return
	}
	if len(payload.Updates) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "at least one ref update is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every update against the current table before applying
	// any, so the batch is atomic.
	for _, u := range payload.Updates {
		name := strings.TrimSpace(u.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "ref update name is required")
			return
		}
		current, exists := s.refs[name]
		if u.Old != nil {
			expected := object.Hash(strings.TrimSpace(*u.Old))
			if expected == "" && exists {
				writeError(w, http.StatusConflict, codeRefConflict,
					fmt.Sprintf("ref %q already exists at %s", name, current))
				return
			}
			if expected != "" && (!exists || current != expected) {
				writeError(w, http.StatusConflict, codeRefConflict,
					fmt.Sprintf("ref %q is at %s, expected %s", name, current, expected))
				return
			}
		}
		if u.New != nil && strings.TrimSpace(*u.New) != "" {
			h := object.Hash(strings.TrimSpace(*u.New))
			if err := object.ValidateHash(h); err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", "invalid new hash for ref "+name)
				return
			}
			if !s.store.Has(h) {
				writeError(w, http.StatusBadRequest, "missing_object",
					fmt.Sprintf("ref %q target %s is not present on the server", name, h))
				return
			}
		}
	}

	updated := make(map[string]string, len(payload.Updates))
	for _, u := range payload.Updates {
		name := strings.TrimSpace(u.Name)
		if u.New == nil || strings.TrimSpace(*u.New) == "" {
			delete(s.refs, name)
			updated[name] = ""
			continue
		}
		h := object.Hash(strings.TrimSpace(*u.New))
		s.refs[name] = h
		updated[name] = string(h)
	}

	writeJSON(w, http.StatusOK, struct {
		Updated map[string]string `json:"updated"`
	}{Updated: updated})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	hash := object.Hash(strings.TrimSpace(r.PathValue("hash")))
	if err := object.ValidateHash(hash); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	objType, data, err := s.store.Read(hash)
	if err != nil {
		writeError(w, http.StatusNotFound, codeObjectNotFound, "object "+string(hash)+" not found")
		return
	}
	w.Header().Set(headerObjectType, string(objType))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handlePushObjects(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if isZstdEncoded(r.Header.Get("Content-Encoding")) {
		zr, err := newZstdReader(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "open zstd stream: "+err.Error())
			return
		}
		defer zr.Close()
		body = zr
	}

	written := 0
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), responseLimitObject)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec struct {
			Hash string `json:"hash"`
			Type string `json:"type"`
			Data []byte `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "decode object record: "+err.Error())
			return
		}
		objType, err := object.ParseObjectType(rec.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		computed := object.HashObject(objType, rec.Data)
		if rec.Hash != "" && object.Hash(rec.Hash) != computed {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Sprintf("object hash mismatch: provided %s, computed %s", rec.Hash, computed))
			return
		}
		if _, err := s.store.Write(objType, rec.Data); err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
			return
		}
		written++
	}
	if err := scanner.Err(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "read push stream: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Written int `json:"written"`
	}{Written: written})
}

func (s *Server) handleBatchObjects(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Wants      []string `json:"wants"`
		Haves      []string `json:"haves"`
		MaxObjects int      `json:"max_objects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "decode batch request: "+err.Error())
		return
	}
	if len(payload.Wants) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "at least one want hash is required")
		return
	}
	maxObjects := payload.MaxObjects
	if maxObjects <= 0 || maxObjects > MaxBatchObjects {
		maxObjects = MaxBatchObjects
	}

	wants := make([]object.Hash, 0, len(payload.Wants))
	for _, h := range payload.Wants {
		wants = append(wants, object.Hash(h))
	}
	haves := make([]object.Hash, 0, len(payload.Haves))
	for _, h := range payload.Haves {
		haves = append(haves, object.Hash(h))
	}

	stopSet, err := ReachableSet(s.store, haves)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	type objectPayload struct {
		Hash string `json:"hash"`
		Type string `json:"type"`
		Data []byte `json:"data"`
	}
	var objects []objectPayload
	truncated := false

	seen := make(map[object.Hash]struct{})
	stack := append(make([]object.Hash, 0, len(wants)), wants...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		if _, stopped := stopSet[h]; stopped {
			continue
		}
		seen[h] = struct{}{}
		if !s.store.Has(h) {
			continue
		}
		if len(objects) >= maxObjects {
			truncated = true
			break
		}

		objType, data, err := s.store.Read(h)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
			return
		}
		objects = append(objects, objectPayload{Hash: string(h), Type: string(objType), Data: data})

		refs, err := object.ReferencedHashes(objType, data)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
			return
		}
		stack = append(stack, refs...)
	}

	resp := struct {
		Objects   []objectPayload `json:"objects"`
		Truncated bool            `json:"truncated"`
	}{Objects: objects, Truncated: truncated}

	raw, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_error", err.Error())
		return
	}

	caps := ParseCapabilities(r.Header.Get(headerCapabilities))
	if caps.Has("zstd") && isZstdEncoded(r.Header.Get("Accept-Encoding")) {
		compressed, err := compressZstd(raw)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Encoding", "zstd")
			w.WriteHeader(http.StatusOK)
			w.Write(compressed)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, RemoteError{Code: code, Message: msg})
}
