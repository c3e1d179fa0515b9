package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalder95/auctiond/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeWriter struct {
	puts      map[string][]byte
	multipart map[string][]byte
	err       error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{puts: map[string][]byte{}, multipart: map[string][]byte{}}
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts[path] = buf
	return nil
}

func (w *fakeWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	if w.err != nil {
		return w.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.multipart[path] = buf
	return nil
}

type fakeReader struct {
	existing map[string]bool
	objects  []domain.BlobInfo
	content  map[string]string
}

func newFakeReader() *fakeReader {
	return &fakeReader{existing: map[string]bool{}, content: map[string]string{}}
}

func (r *fakeReader) Get(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := r.content[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (r *fakeReader) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for _, obj := range r.objects {
		if strings.HasPrefix(obj.Path, prefix) {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (r *fakeReader) Exists(_ context.Context, path string) (bool, error) {
	return r.existing[path], nil
}

func TestArchiveLots_UploadsLedgerAsJSONL(t *testing.T) {
	writer := newFakeWriter()
	archiver := NewArchiver(writer, newFakeReader(), discard)

	lot := domain.Lot{
		ID:         "lot-1",
		PlayerID:   "p-1",
		PlayerName: "Justin Jefferson",
		Position:   "WR",
		Bids: []domain.Bid{
			{ID: "b-1", LotID: "lot-1", BidderID: "team-a", Amount: 25,
				SubmittedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
			{ID: "b-2", LotID: "lot-1", BidderID: "team-b", Amount: 30,
				SubmittedAt: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)},
		},
	}

	archived, err := archiver.ArchiveLots(context.Background(), "auction-1", []domain.Lot{lot})
	require.NoError(t, err)
	assert.Equal(t, int64(1), archived)

	body, ok := writer.puts["archive/auction-1/lot-1.jsonl"]
	require.True(t, ok)

	lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
	require.Len(t, lines, 3)

	var header ledgerHeader
	require.NoError(t, json.Unmarshal(lines[0], &header))
	assert.Equal(t, "Justin Jefferson", header.PlayerName)
	assert.Equal(t, 2, header.BidCount)

	var first domain.Bid
	require.NoError(t, json.Unmarshal(lines[1], &first))
	assert.Equal(t, "b-1", first.ID)
}

func TestArchiveLots_SkipsAlreadyArchived(t *testing.T) {
	writer := newFakeWriter()
	reader := newFakeReader()
	reader.existing["archive/auction-1/lot-1.jsonl"] = true
	archiver := NewArchiver(writer, reader, discard)

	archived, err := archiver.ArchiveLots(context.Background(), "auction-1",
		[]domain.Lot{{ID: "lot-1"}, {ID: "lot-2"}})
	require.NoError(t, err)

	assert.Equal(t, int64(1), archived)
	assert.NotContains(t, writer.puts, "archive/auction-1/lot-1.jsonl")
	assert.Contains(t, writer.puts, "archive/auction-1/lot-2.jsonl")
}

func TestUpload_LargeLedgerUsesMultipart(t *testing.T) {
	writer := newFakeWriter()
	archiver := NewArchiver(writer, newFakeReader(), discard)

	big := bytes.Repeat([]byte("x"), multipartThreshold)
	require.NoError(t, archiver.upload(context.Background(), "archive/a/big.jsonl", big))
	require.NoError(t, archiver.upload(context.Background(), "archive/a/small.jsonl", []byte("{}")))

	assert.Contains(t, writer.multipart, "archive/a/big.jsonl")
	assert.NotContains(t, writer.puts, "archive/a/big.jsonl")
	assert.Contains(t, writer.puts, "archive/a/small.jsonl")
}

func TestListArchived_FiltersByAuction(t *testing.T) {
	reader := newFakeReader()
	reader.objects = []domain.BlobInfo{
		{Path: "archive/auction-1/lot-1.jsonl", Size: 420},
		{Path: "archive/auction-1/lot-2.jsonl", Size: 128},
		{Path: "archive/auction-2/lot-9.jsonl", Size: 64},
	}
	archiver := NewArchiver(newFakeWriter(), reader, discard)

	infos, err := archiver.ListArchived(context.Background(), "auction-1")
	require.NoError(t, err)

	require.Len(t, infos, 2)
	assert.Equal(t, "archive/auction-1/lot-1.jsonl", infos[0].Path)
	assert.Equal(t, "archive/auction-1/lot-2.jsonl", infos[1].Path)
}

func TestOpenLedger(t *testing.T) {
	reader := newFakeReader()
	reader.content["archive/auction-1/lot-1.jsonl"] = `{"lot_id":"lot-1"}` + "\n"
	archiver := NewArchiver(newFakeWriter(), reader, discard)

	rc, err := archiver.OpenLedger(context.Background(), "auction-1", "lot-1")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"lot_id":"lot-1"}`+"\n", string(body))

	_, err = archiver.OpenLedger(context.Background(), "auction-1", "lot-gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
