package nvram

import (
	"encoding/binary"
	"fmt"
)

// HeaderCodec and SpaceCodec produce a fixed, canonical binary layout:
// encoding the same logical record twice always yields identical bytes,
// and decoding tolerates (ignores) any bytes trailing the fields it
// defines, so a forward-compatible writer can append fields later
// without breaking this reader.

// EncodeHeader writes h as:
//
//	u32 version
//	u32 flags
//	u8  has_provisional (0/1)
//	u32 provisional_index (present regardless, 0 if absent)
//	u32 count
//	count * u32 allocated index
func EncodeHeader(h NvramHeader) []byte {
	buf := make([]byte, 4+4+1+4+4+4*len(h.AllocatedIndices))
	off := 0
	binary.BigEndian.PutUint32(buf[off:], h.Version)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], h.Flags)
	off += 4
	if h.ProvisionalIndex != nil {
		buf[off] = 1
	}
	off++
	var p uint32
	if h.ProvisionalIndex != nil {
		p = *h.ProvisionalIndex
	}
	binary.BigEndian.PutUint32(buf[off:], p)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(len(h.AllocatedIndices)))
	off += 4
	for _, idx := range h.AllocatedIndices {
		binary.BigEndian.PutUint32(buf[off:], idx)
		off += 4
	}
	return buf
}

// DecodeHeader is the inverse of EncodeHeader; trailing bytes beyond the
// last allocated index are ignored.
func DecodeHeader(b []byte) (NvramHeader, error) {
	const fixed = 4 + 4 + 1 + 4 + 4
	if len(b) < fixed {
		return NvramHeader{}, fmt.Errorf("nvram: header blob too short (%d bytes)", len(b))
	}
	var h NvramHeader
	off := 0
	h.Version = binary.BigEndian.Uint32(b[off:])
	off += 4
	h.Flags = binary.BigEndian.Uint32(b[off:])
	off += 4
	hasProvisional := b[off] != 0
	off++
	p := binary.BigEndian.Uint32(b[off:])
	off += 4
	if hasProvisional {
		h.ProvisionalIndex = &p
	}
	count := binary.BigEndian.Uint32(b[off:])
	off += 4
	need := int(count) * 4
	if len(b)-off < need {
		return NvramHeader{}, fmt.Errorf("nvram: header blob truncated: need %d more bytes for %d indices", need, count)
	}
	h.AllocatedIndices = make([]uint32, count)
	for i := range h.AllocatedIndices {
		h.AllocatedIndices[i] = binary.BigEndian.Uint32(b[off:])
		off += 4
	}
	return h, nil
}

// EncodeSpace writes s as:
//
//	u32 flags
//	u32 controls
//	u16 auth_len
//	auth_len bytes authorization value
//	u32 contents_len
//	contents_len bytes contents
func EncodeSpace(s NvramSpace) []byte {
	buf := make([]byte, 4+4+2+len(s.AuthorizationValue)+4+len(s.Contents))
	off := 0
	binary.BigEndian.PutUint32(buf[off:], s.Flags)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], s.Controls)
	off += 4
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s.AuthorizationValue)))
	off += 2
	off += copy(buf[off:], s.AuthorizationValue)
	binary.BigEndian.PutUint32(buf[off:], uint32(len(s.Contents)))
	off += 4
	copy(buf[off:], s.Contents)
	return buf
}

// DecodeSpace is the inverse of EncodeSpace; trailing bytes beyond
// contents are ignored.
func DecodeSpace(b []byte) (NvramSpace, error) {
	const fixed = 4 + 4 + 2
	if len(b) < fixed {
		return NvramSpace{}, fmt.Errorf("nvram: space blob too short (%d bytes)", len(b))
	}
	var s NvramSpace
	off := 0
	s.Flags = binary.BigEndian.Uint32(b[off:])
	off += 4
	s.Controls = binary.BigEndian.Uint32(b[off:])
	off += 4
	authLen := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	if len(b)-off < authLen+4 {
		return NvramSpace{}, fmt.Errorf("nvram: space blob truncated reading authorization value")
	}
	s.AuthorizationValue = append([]byte(nil), b[off:off+authLen]...)
	off += authLen
	contentsLen := int(binary.BigEndian.Uint32(b[off:]))
	off += 4
	if len(b)-off < contentsLen {
		return NvramSpace{}, fmt.Errorf("nvram: space blob truncated reading contents")
	}
	s.Contents = append([]byte(nil), b[off:off+contentsLen]...)
	return s, nil
}
