// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/procpstest"
)

func newTestServer(t *testing.T, fake *procpstest.Fake, config Config) *Server {
	t.Helper()
	s, err := New(logr.Discard(), procps.NewSession(fake, logr.Discard()), config)
	require.NoError(t, err)
	t.Cleanup(s.cache.Close)
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func testFake() *procpstest.Fake {
	return &procpstest.Fake{
		Mem:     procps.MemCounters{MainTotal: 16000, MainFree: 8000},
		Load:    [3]float64{0.5, 0.25, 0.125},
		Version: 0x060100,
		Up:      90,
		Boot:    1700000000,
		CPU:     procps.CPUCounters{Hertz: 100, NumCPUs: 4, PageBytes: 4096},
		Disks:   []procps.DiskRecord{procpstest.Disk("sda", 1)},
		Partitions: []procps.PartitionRecord{
			procpstest.Partition("sda1", 0),
		},
		StatSlots: procpstest.Stat{
			Pairs: map[string][2]procpstest.Slot{"user": {procpstest.Value(10), nil}},
		},
		Users:   map[uint32]string{0: "root"},
		Groups:  map[uint32]string{10: "wheel"},
		Wchans:  map[int32]string{1: "ep_poll"},
		Machine: " 10:00:00 up 1 min,  0 users,  load average: 0.50, 0.25, 0.12",
		Human:   "up 1 minute",
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	assert.Equal(t, DefaultConfig(), c)
	assert.NoError(t, c.Validate())

	c.StatTTL = NoCache
	assert.NoError(t, c.Validate())
	c.ApplyDefaults()
	assert.Equal(t, NoCache, c.StatTTL, "negative TTLs survive defaulting")

	c.ShutdownTimeout = -time.Second
	assert.Error(t, c.Validate())

	_, err := New(logr.Discard(), procps.NewSession(testFake(), logr.Discard()), c)
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, testFake(), Config{})

	tests := []struct {
		path  string
		check func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{"/", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.Equal(t, Routes, decode[[]string](t, rec))
		}},
		{"/ping", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"response": "pong"}`, rec.Body.String())
		}},
		{"/meminfo", func(t *testing.T, rec *httptest.ResponseRecorder) {
			m := decode[map[string]uint64](t, rec)
			assert.Equal(t, uint64(16000), m["total"])
			assert.Equal(t, uint64(8000), m["free"])
		}},
		{"/loadinfo", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"av1": 0.5, "av5": 0.25, "av15": 0.125}`, rec.Body.String())
		}},
		{"/uptime", func(t *testing.T, rec *httptest.ResponseRecorder) {
			m := decode[map[string]int64](t, rec)
			assert.Equal(t, int64(90*time.Second), m["active"])
			assert.Equal(t, m["active"], m["idle"])
		}},
		{"/cpuinfo", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"hz": 100, "cpus": 4, "page_bytes": 4096}`, rec.Body.String())
		}},
		{"/kernel", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"major": 6, "minor": 1, "patch": 0}`, rec.Body.String())
		}},
		{"/btime", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"btime": 1700000000}`, rec.Body.String())
		}},
		{"/diskstat", func(t *testing.T, rec *httptest.ResponseRecorder) {
			var v struct {
				Disks []struct {
					Name string `json:"name"`
				} `json:"disks"`
				Partitions []struct {
					Name   string `json:"name"`
					Parent uint32 `json:"parent_disk_index"`
				} `json:"partitions"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
			require.Len(t, v.Disks, 1)
			assert.Equal(t, "sda", v.Disks[0].Name)
			require.Len(t, v.Partitions, 1)
			assert.Equal(t, "sda1", v.Partitions[0].Name)
		}},
		{"/stat", func(t *testing.T, rec *httptest.ResponseRecorder) {
			var v struct {
				CPU map[string]*uint64 `json:"cpu"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
			require.NotNil(t, v.CPU["user"])
			assert.Equal(t, uint64(10), *v.CPU["user"])
			assert.Nil(t, v.CPU["steal"])
		}},
		{"/whattime", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.Equal(t, " 10:00:00 up 1 min,  0 users,  load average: 0.50, 0.25, 0.12",
				decode[map[string]string](t, rec)["uptime"])
		}},
		{"/whattime?human=true", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"uptime": "up 1 minute"}`, rec.Body.String())
		}},
		{"/users/0", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"uid": 0, "name": "root"}`, rec.Body.String())
		}},
		{"/users/4242", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"uid": 4242, "name": ""}`, rec.Body.String())
		}},
		{"/groups/10", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"gid": 10, "name": "wheel"}`, rec.Body.String())
		}},
		{"/wchan/1", func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.JSONEq(t, `{"pid": 1, "wchan": "ep_poll"}`, rec.Body.String())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, s, tt.path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			tt.check(t, rec)
		})
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, testFake(), Config{})

	for _, path := range []string{
		"/users/alice", "/users/-1", "/users/4294967296", "/groups/x",
		"/wchan/0", "/wchan/abc", "/whattime?human=maybe",
	} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(t, s, path).Code)
		})
	}
	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)
}

func TestResponsesAreCached(t *testing.T) {
	fake := testFake()
	s := newTestServer(t, fake, Config{MemInfoTTL: time.Hour, LoadInfoTTL: 20 * time.Millisecond})

	first := get(t, s, "/meminfo").Body.String()
	fake.Mem.MainTotal = 1
	assert.Equal(t, first, get(t, s, "/meminfo").Body.String())
	assert.Equal(t, 1, fake.Calls["Meminfo"])

	get(t, s, "/loadinfo")
	fake.Load = [3]float64{9, 9, 9}
	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loadinfo", nil))
		var load map[string]float64
		return json.Unmarshal(rec.Body.Bytes(), &load) == nil && load["av1"] == 9
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNegativeTTLDisablesCaching(t *testing.T) {
	fake := testFake()
	s := newTestServer(t, fake, Config{StatTTL: NoCache, LoadInfoTTL: -time.Minute})

	get(t, s, "/stat")
	get(t, s, "/stat")
	assert.Equal(t, 2, fake.Calls["Stat"])

	first := decode[map[string]float64](t, get(t, s, "/loadinfo"))
	fake.Load = [3]float64{9, 9, 9}
	second := decode[map[string]float64](t, get(t, s, "/loadinfo"))
	assert.Equal(t, 0.5, first["av1"])
	assert.Equal(t, 9.0, second["av1"])
}

func TestDecodeFailureIsServerError(t *testing.T) {
	fake := testFake()
	bad := procpstest.Disk("", 0)
	for i := range bad.DiskName {
		bad.DiskName[i] = 'x'
	}
	fake.Disks = []procps.DiskRecord{bad}
	fake.Partitions = nil
	s := newTestServer(t, fake, Config{})

	rec := get(t, s, "/diskstat")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk_name")

	// Failures are not cached
	fake.Disks = []procps.DiskRecord{procpstest.Disk("sda", 0)}
	assert.Equal(t, http.StatusOK, get(t, s, "/diskstat").Code)
}

func TestMarshalFailure(t *testing.T) {
	s := newTestServer(t, testFake(), Config{})
	s.marshal = func(any) ([]byte, error) { return nil, errors.New("boom") }

	for _, path := range []string{"/", "/meminfo", "/users/0"} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Equal(t, "Could not marshal data\n", rec.Body.String(), path)
	}
}

func TestRecoversFromPanics(t *testing.T) {
	s := newTestServer(t, testFake(), Config{})
	s.marshal = func(any) ([]byte, error) { panic("boom") }

	assert.Equal(t, http.StatusInternalServerError, get(t, s, "/ping").Code)
}
