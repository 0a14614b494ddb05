package serial

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrafficLog_CreatesDirectoryAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "bridge.log")

	log, err := OpenTrafficLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Record(ToDevice, []byte("AT\r")))
	require.NoError(t, log.Record(ToApplication, []byte("OK\r\n")))
	require.NoError(t, log.Close())

	// A second run appends rather than truncating.
	log, err = OpenTrafficLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Record(ToDevice, []byte{0x00, 0x01}))
	require.NoError(t, log.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "request:AT\rresponse:OK\r\nrequest:\x00\x01", string(content))
}

func TestTrafficLog_ConcurrentRecordsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")
	log, err := OpenTrafficLog(path)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	const records = 200
	requestChunk := bytes.Repeat([]byte{'a'}, 257)
	responseChunk := bytes.Repeat([]byte{'b'}, 131)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < records; i++ {
			assert.NoError(t, log.Record(ToDevice, requestChunk))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < records; i++ {
			assert.NoError(t, log.Record(ToApplication, responseChunk))
		}
	}()
	wg.Wait()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	requests, responses := 0, 0
	rest := string(content)
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, ToDevice.Tag()):
			rest = rest[len(ToDevice.Tag()):]
			require.True(t, strings.HasPrefix(rest, string(requestChunk)))
			rest = rest[len(requestChunk):]
			requests++
		case strings.HasPrefix(rest, ToApplication.Tag()):
			rest = rest[len(ToApplication.Tag()):]
			require.True(t, strings.HasPrefix(rest, string(responseChunk)))
			rest = rest[len(responseChunk):]
			responses++
		default:
			t.Fatalf("unexpected record start: %q", rest[:min(len(rest), 16)])
		}
	}
	require.Equal(t, records, requests)
	require.Equal(t, records, responses)
}

func TestTrafficLog_UnwritableSink(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-directory")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := OpenTrafficLog(filepath.Join(blocker, "bridge.log"))
	require.ErrorIs(t, err, ErrLogging)
}

func TestDirection_Tag(t *testing.T) {
	require.Equal(t, "request:", ToDevice.Tag())
	require.Equal(t, "response:", ToApplication.Tag())
}

func TestTrafficLog_RecordAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")
	log, err := OpenTrafficLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Record(ToDevice, []byte("before")))
	require.NoError(t, log.Close())
	require.NoError(t, log.Close())

	require.ErrorIs(t, log.Record(ToApplication, []byte("after")), ErrLogging)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "request:before", string(content))
}
