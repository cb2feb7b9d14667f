package catalogue

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// Polygon blobs are length-prefixed arrays of little-endian IEEE-754
// doubles in WGS84, axis order lon,lat, one ring per polygon. Each ring
// is terminated by a sentinel point equal to its first point, so rings
// decode already closed.

// Blob codec errors.
var (
	ErrBlobTruncated = errors.New("polygon blob truncated")
	ErrBlobSentinel  = errors.New("polygon ring does not end at its first point")
)

// EncodePolygons serialises closed exterior rings into the catalogue
// blob format.
func EncodePolygons(rings []orb.Ring) []byte {
	size := 4
	for _, ring := range rings {
		size += 4 + len(ring)*16
	}
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(rings)))
	for _, ring := range rings {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ring)))
		for _, pt := range ring {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(pt[0]))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(pt[1]))
		}
	}
	return buf
}

// DecodePolygons parses a catalogue polygon blob back into rings.
func DecodePolygons(blob []byte) ([]orb.Ring, error) {
	if len(blob) < 4 {
		return nil, ErrBlobTruncated
	}
	ringCount := binary.LittleEndian.Uint32(blob)
	offset := 4

	rings := make([]orb.Ring, 0, ringCount)
	for r := uint32(0); r < ringCount; r++ {
		if len(blob) < offset+4 {
			return nil, ErrBlobTruncated
		}
		pointCount := int(binary.LittleEndian.Uint32(blob[offset:]))
		offset += 4
		if len(blob) < offset+pointCount*16 {
			return nil, ErrBlobTruncated
		}

		ring := make(orb.Ring, pointCount)
		for i := 0; i < pointCount; i++ {
			lon := math.Float64frombits(binary.LittleEndian.Uint64(blob[offset:]))
			lat := math.Float64frombits(binary.LittleEndian.Uint64(blob[offset+8:]))
			ring[i] = orb.Point{lon, lat}
			offset += 16
		}
		if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
			return nil, ErrBlobSentinel
		}
		rings = append(rings, ring)
	}
	return rings, nil
}
