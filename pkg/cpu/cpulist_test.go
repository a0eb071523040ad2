// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package cpu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		name    string
		list    string
		want    []int
		wantErr bool
	}{
		{name: "empty", list: "", want: []int{}},
		{name: "newline only", list: "\n", want: []int{}},
		{name: "single", list: "0\n", want: []int{0}},
		{name: "range", list: "0-3", want: []int{0, 1, 2, 3}},
		{name: "mixed", list: "0,2-4,7", want: []int{0, 2, 3, 4, 7}},
		{name: "single element range", list: "5-5", want: []int{5}},
		{name: "reversed range", list: "4-2", wantErr: true},
		{name: "garbage", list: "a-b", wantErr: true},
		{name: "negative", list: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseList(tt.list)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOnlineCount(t *testing.T) {
	sys := t.TempDir()
	dir := filepath.Join(sys, "devices", "system", "cpu")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "online"), []byte("0-3,6\n"), 0o644))

	n, err := OnlineCount(sys)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = OnlineCount(t.TempDir())
	assert.Error(t, err)
}
