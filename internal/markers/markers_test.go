package markers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"NewsletterDigest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type memoryStore struct {
	markers []model.MarkerRef
}

func (m *memoryStore) ReplaceMarkers(_ context.Context, markers []model.MarkerRef) error {
	m.markers = markers
	return nil
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []model.MarkerRef
	}{
		{
			name:  "canonical columns",
			input: "price,type\n5703,Weekly\n5652.5,Daily\n",
			want:  []model.MarkerRef{{Price: 5703, MarkerType: "Weekly"}, {Price: 5652.5, MarkerType: "Daily"}},
		},
		{
			name:  "legacy column names in any order",
			input: "\ufeffVDLine_Type,VDLine\nSkyline,\"5,800\"\n\n",
			want:  []model.MarkerRef{{Price: 5800, MarkerType: "Skyline"}},
		},
		{
			name:  "extra columns ignored",
			input: "id,level,category\n1,5700,Monthly\n",
			want:  []model.MarkerRef{{Price: 5700, MarkerType: "Monthly"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"missing column": "price\n5700\n",
		"bad price":      "price,type\nabc,Daily\n",
		"missing type":   "price,type\n5700,\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestImporter_ImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vdlines.csv")
	require.NoError(t, os.WriteFile(path, []byte("price,type\n5703,Weekly\n5800,Skyline\n"), 0644))

	store := &memoryStore{}
	n, err := NewImporter(store, arbor.NewLogger()).ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.markers, 2)
}

func TestImporter_BadFileKeepsMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vdlines.csv")
	require.NoError(t, os.WriteFile(path, []byte("price,type\nnope,Weekly\n"), 0644))

	existing := []model.MarkerRef{{Price: 1, MarkerType: "Daily"}}
	store := &memoryStore{markers: existing}
	_, err := NewImporter(store, arbor.NewLogger()).ImportFile(context.Background(), path)
	assert.Error(t, err)
	assert.Equal(t, existing, store.markers)
}
