// Package exiftest builds minimal little-endian TIFF/EXIF streams carrying a
// GPS IFD, for tests that need geotagged photo bytes.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// GPS tag ids.
const (
	TagLatitudeRef  uint16 = 0x0001
	TagLatitude     uint16 = 0x0002
	TagLongitudeRef uint16 = 0x0003
	TagLongitude    uint16 = 0x0004
)

const (
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5

	tagGPSPointer = 0x8825
)

// Entry is one IFD field.
type Entry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

// ASCII returns a NUL-terminated string field.
func ASCII(tag uint16, s string) Entry {
	return Entry{tag: tag, typ: typeASCII, count: uint32(len(s) + 1), value: append([]byte(s), 0)}
}

// Rational returns a field of numerator/denominator pairs.
func Rational(tag uint16, parts ...[2]uint32) Entry {
	le := binary.LittleEndian
	var v []byte
	for _, p := range parts {
		v = le.AppendUint32(v, p[0])
		v = le.AppendUint32(v, p[1])
	}
	return Entry{tag: tag, typ: typeRational, count: uint32(len(parts)), value: v}
}

// Build returns a TIFF stream whose IFD0 points at a GPS IFD holding entries.
func Build(entries ...Entry) []byte {
	le := binary.LittleEndian
	const gpsOffset = 8 + 2 + 12 + 4

	var buf bytes.Buffer
	buf.WriteString("II")
	buf.Write(le.AppendUint16(nil, 42))
	buf.Write(le.AppendUint32(nil, 8))

	buf.Write(le.AppendUint16(nil, 1))
	writeEntry(&buf, tagGPSPointer, typeLong, 1, le.AppendUint32(nil, gpsOffset))
	buf.Write(le.AppendUint32(nil, 0))

	dataStart := uint32(gpsOffset + 2 + 12*len(entries) + 4)
	var data []byte

	buf.Write(le.AppendUint16(nil, uint16(len(entries))))
	for _, e := range entries {
		if len(e.value) <= 4 {
			writeEntry(&buf, e.tag, e.typ, e.count, e.value)
			continue
		}
		writeEntry(&buf, e.tag, e.typ, e.count, le.AppendUint32(nil, dataStart+uint32(len(data))))
		data = append(data, e.value...)
	}
	buf.Write(le.AppendUint32(nil, 0))
	buf.Write(data)

	return buf.Bytes()
}

// GPS returns a stream tagged with the given signed coordinate, stored the
// way cameras do: unsigned magnitudes plus N/S and E/W references.
func GPS(lat, lon float64) []byte {
	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef = "S"
	}
	if lon < 0 {
		lonRef = "W"
	}
	return Build(
		ASCII(TagLatitudeRef, latRef),
		Rational(TagLatitude, micro(lat), [2]uint32{0, 1}, [2]uint32{0, 1}),
		ASCII(TagLongitudeRef, lonRef),
		Rational(TagLongitude, micro(lon), [2]uint32{0, 1}, [2]uint32{0, 1}),
	)
}

func micro(deg float64) [2]uint32 {
	return [2]uint32{uint32(math.Round(math.Abs(deg) * 1e6)), 1e6}
}

func writeEntry(buf *bytes.Buffer, tag, typ uint16, count uint32, value []byte) {
	le := binary.LittleEndian
	buf.Write(le.AppendUint16(nil, tag))
	buf.Write(le.AppendUint16(nil, typ))
	buf.Write(le.AppendUint32(nil, count))
	inline := make([]byte, 4)
	copy(inline, value)
	buf.Write(inline)
}
