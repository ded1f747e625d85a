package chunk

import (
	"bytes"
	"errors"
	"io"

	chunker "github.com/ipfs/go-ipfs-chunker"
	"golang.org/x/xerrors"
)

// ErrOversizePayload indicates a payload that cannot fit a single
// container at the requested chunk size
var ErrOversizePayload = errors.New("payload exceeds maximum container capacity")

// Split cuts payload into fixed-size chunks. The split is
// deterministic: every chunk is exactly chunkSize bytes except a
// possibly shorter final chunk. An empty payload produces exactly one
// empty chunk.
func Split(payload []byte, chunkSize uint64) ([]Chunk, error) {
	if chunkSize == 0 {
		return nil, xerrors.New("chunk size must be positive")
	}
	if chunkSize > MaxChunkSize {
		return nil, xerrors.Errorf("chunk size %d above protocol maximum %d", chunkSize, MaxChunkSize)
	}
	if uint64(len(payload)) > chunkSize*MaxChunksPerContainer {
		return nil, ErrOversizePayload
	}
	if len(payload) == 0 {
		empty, err := New(nil)
		if err != nil {
			return nil, err
		}
		return []Chunk{empty}, nil
	}

	splitter := chunker.NewSizeSplitter(bytes.NewReader(payload), int64(chunkSize))
	var chunks []Chunk
	for {
		piece, err := splitter.NextBytes()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return nil, xerrors.Errorf("splitting payload: %w", err)
		}
		c, err := New(piece)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
}
