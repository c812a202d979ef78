package tracegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pagelens/pagelens/engine"
	"github.com/pagelens/pagelens/harlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	opts := GenerateOptions{EventCount: 30, Seed: 42, WithMetadata: true}

	first := Generate(opts)
	second := Generate(opts)

	assert.Equal(t, first.Events, second.Events)
	assert.Equal(t, first.Navigation, second.Navigation)
}

func TestGenerate_KeysNeverCollide(t *testing.T) {
	result := Generate(GenerateOptions{EventCount: 200, Seed: 7})

	session := engine.NewSession(engine.Config{PageURL: result.PageURL})
	defer session.Close()

	added := session.Ingest(result.Events)
	assert.Len(t, added, 200)
}

func TestGenerate_Defaults(t *testing.T) {
	result := Generate(GenerateOptions{Seed: 1})

	assert.Len(t, result.Events, DefaultGenerateOptions.EventCount)
	assert.Equal(t, DefaultGenerateOptions.PageURL, result.PageURL)
}

func TestGenerate_MixesFirstAndThirdParty(t *testing.T) {
	result := Generate(GenerateOptions{EventCount: 100, Seed: 42})

	session := engine.NewSession(engine.Config{PageURL: result.PageURL})
	defer session.Close()
	session.Ingest(result.Events)

	var third int
	for _, rec := range session.Records() {
		if rec.ThirdParty {
			third++
		}
	}
	assert.Greater(t, third, 0)
	assert.Less(t, third, 100)
}

func TestWriteCapture_ProducesImportableDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.har")

	result, err := WriteCapture(path, GenerateOptions{EventCount: 15, Seed: 42, WithMetadata: true})
	require.NoError(t, err)
	require.Len(t, result.Events, 15)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	imported, err := harlog.Read(f)
	require.NoError(t, err)
	assert.Len(t, imported.Records, 15)
	assert.Equal(t, result.PageURL, imported.PageURL)
	assert.Equal(t, result.Navigation, imported.Navigation)
}
