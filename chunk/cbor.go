package chunk

import (
	"io"

	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// MarshalCBOR writes the digest as a fixed-length cbor byte string
func (d *Digest) MarshalCBOR(w io.Writer) error {
	if d == nil {
		_, err := w.Write(cbg.CborNull)
		return err
	}
	scratch := make([]byte, 9)
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajByteString, uint64(DigestSize)); err != nil {
		return err
	}
	_, err := w.Write(d[:])
	return err
}

// UnmarshalCBOR reads a digest from a cbor byte string
func (d *Digest) UnmarshalCBOR(r io.Reader) error {
	*d = Digest{}

	br := cbg.GetPeeker(r)
	scratch := make([]byte, 8)

	maj, extra, err := cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajByteString {
		return xerrors.New("digest: expected byte string")
	}
	if extra != uint64(DigestSize) {
		return xerrors.Errorf("digest: expected %d bytes, got %d", DigestSize, extra)
	}
	if _, err := io.ReadFull(br, d[:]); err != nil {
		return err
	}
	return nil
}
