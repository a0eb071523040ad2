// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/antimetal/procstat/pkg/pwcache"
	"github.com/antimetal/procstat/pkg/wchan"
	"github.com/antimetal/procstat/pkg/whattime"
)

// Routes lists the paths served, as returned by GET /.
var Routes = []string{
	"/", "/ping", "/meminfo", "/loadinfo", "/uptime", "/cpuinfo", "/kernel", "/btime",
	"/diskstat", "/stat", "/whattime", "/users/{uid}", "/groups/{gid}", "/wchan/{pid}",
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, Routes)
	})
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, map[string]string{"response": "pong"})
	})

	r.Get("/meminfo", cachedJSON(s, "meminfo", s.config.MemInfoTTL, infallible(s.reader.GetMemInfo)))
	r.Get("/loadinfo", cachedJSON(s, "loadinfo", s.config.LoadInfoTTL, infallible(s.reader.GetLoadAvg)))
	r.Get("/uptime", cachedJSON(s, "uptime", s.config.UptimeTTL, infallible(s.reader.GetUptime)))
	r.Get("/cpuinfo", cachedJSON(s, "cpuinfo", NeverExpires, infallible(s.reader.GetCPUInfo)))
	r.Get("/kernel", cachedJSON(s, "kernel", NeverExpires, infallible(s.reader.GetKernelInfo)))
	r.Get("/btime", cachedJSON(s, "btime", NeverExpires, func() (map[string]uint64, error) {
		return map[string]uint64{"btime": s.reader.GetBootTime()}, nil
	}))
	r.Get("/diskstat", cachedJSON(s, "diskstat", s.config.DiskStatTTL, s.reader.GetDiskStat))
	r.Get("/stat", cachedJSON(s, "stat", s.config.StatTTL, infallible(s.reader.GetStat)))
	r.Get("/whattime", s.handleWhattime)

	r.Get("/users/{uid}", s.handleName("uid", pwcache.NewResolver(s.session).GetUser))
	r.Get("/groups/{gid}", s.handleName("gid", pwcache.NewResolver(s.session).GetGroup))
	r.Get("/wchan/{pid}", s.handleWchan)
	return r
}

func infallible[T any](fn func() T) func() (T, error) {
	return func() (T, error) { return fn(), nil }
}

// cachedJSON serves the marshalled result of fetch, reusing it for ttl. A ttl of zero or
// less fetches on every request.
func cachedJSON[T any](s *Server, name string, ttl time.Duration, fetch func() (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if cached, found := s.cache.Get(name); found {
			writeBody(w, cached.([]byte))
			return
		}

		v, err := fetch()
		if err != nil {
			s.logger.Error(err, "Failed to collect", "route", name)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		body, err := s.marshal(v)
		if err != nil {
			s.logger.Error(err, "Failed to marshal", "route", name)
			http.Error(w, "Could not marshal data", http.StatusInternalServerError)
			return
		}
		if ttl > 0 {
			s.cache.Set(name, body, ttl)
		}
		writeBody(w, body)
	}
}

func (s *Server) handleWhattime(w http.ResponseWriter, r *http.Request) {
	human := false
	if q := r.URL.Query().Get("human"); q != "" {
		var err error
		if human, err = strconv.ParseBool(q); err != nil {
			http.Error(w, "human must be a boolean", http.StatusBadRequest)
			return
		}
	}
	s.writeJSON(w, map[string]string{"uptime": whattime.UptimeStringIn(s.session, human)})
}

func (s *Server) handleName(param string, resolve func(uint32) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 32)
		if err != nil {
			http.Error(w, "invalid "+param, http.StatusBadRequest)
			return
		}
		s.writeJSON(w, map[string]any{param: id, "name": resolve(uint32(id))})
	}
}

func (s *Server) handleWchan(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseInt(chi.URLParam(r, "pid"), 10, 32)
	if err != nil || pid <= 0 {
		http.Error(w, "invalid pid", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, map[string]any{"pid": pid, "wchan": wchan.LookupIn(s.session, int32(pid))})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	body, err := s.marshal(v)
	if err != nil {
		s.logger.Error(err, "Failed to marshal")
		http.Error(w, "Could not marshal data", http.StatusInternalServerError)
		return
	}
	writeBody(w, body)
}

func writeBody(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
