package server

import "net/http"

// NewRouter wires HTTP routes to the server's handlers.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/decode", s.handleDecode)
	mux.HandleFunc("/types", s.handleTypes)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/artifacts", s.handleArtifactList)
	mux.HandleFunc("/artifacts/", s.handleArtifactDownload)
	return mux
}
