package multiposeidon

import (
	"encoding/binary"
	"fmt"
)

// PackingMode selects how primitive bytes become field elements.
type PackingMode uint8

const (
	// ByteEfficient packs as many bytes per field element as the modulus
	// safely allows.
	ByteEfficient PackingMode = iota
	// CircuitFriendly emits one field element per byte, trading element
	// count for trivially constrainable values.
	CircuitFriendly
)

// PaddingMode selects how a final partial chunk is completed in
// byte-efficient mode.
type PaddingMode uint8

const (
	// LengthPrefix inserts the true byte count before the payload, then
	// zero-pads.
	LengthPrefix PaddingMode = iota
	// ZeroPadding zero-pads the remainder with no length marker.
	ZeroPadding
)

// PackingConfig configures primitive-value packing. The zero value is the
// default configuration: byte-efficient packing, auto-sized chunks,
// length-prefix padding.
type PackingConfig struct {
	Mode PackingMode
	// MaxBytesPerField overrides the bytes packed per element; 0 derives
	// it from the field size as max((modulusBits-8)/8, 1), keeping an
	// 8-bit safety margin below the modulus. Overrides are clamped to
	// that same bound (and to 255, the single-byte length prefix limit),
	// so a chunk can never exceed the modulus or an expressible length.
	MaxBytesPerField int
	Padding          PaddingMode
}

// Tag bytes prepended to every serialized primitive so that values of
// different kinds never share a byte encoding. Values are wire-stable.
const (
	tagBool   byte = 0x10
	tagUint8  byte = 0x11
	tagUint16 byte = 0x12
	tagUint32 byte = 0x13
	tagUint64 byte = 0x14
	tagUint   byte = 0x16
	tagInt8   byte = 0x17
	tagInt16  byte = 0x18
	tagInt32  byte = 0x19
	tagInt64  byte = 0x1A
	tagInt    byte = 0x1C
	tagString byte = 0x20
	tagBytes  byte = 0x21
)

// packingBuffer is a FIFO byte queue holding serialized primitives until
// enough bytes accumulate for a field element. It may hold sensitive input
// material; wipe zeroes the backing bytes before releasing them.
type packingBuffer[E any, PE Element[E]] struct {
	bytes            []byte
	config           PackingConfig
	maxBytesPerField int
}

func newPackingBuffer[E any, PE Element[E]](config PackingConfig, modulusBits int) *packingBuffer[E, PE] {
	limit := (modulusBits - 8) / 8
	if limit < 1 {
		limit = 1
	}
	if limit > 255 {
		limit = 255
	}
	maxBytes := config.MaxBytesPerField
	if maxBytes <= 0 || maxBytes > limit {
		maxBytes = limit
	}
	return &packingBuffer[E, PE]{
		config:           config,
		maxBytesPerField: maxBytes,
	}
}

// pushPrimitive serializes one machine value as tag || payload. Integers use
// fixed-width little-endian payloads (uint/int always 8 bytes, so 32-bit and
// 64-bit platforms agree); strings and byte strings use a varint length
// prefix followed by the raw bytes. Unknown dynamic types are a contract
// violation and panic.
func (b *packingBuffer[E, PE]) pushPrimitive(v any) {
	switch x := v.(type) {
	case bool:
		b.pushTag(tagBool)
		if x {
			b.bytes = append(b.bytes, 1)
		} else {
			b.bytes = append(b.bytes, 0)
		}
	case uint8:
		b.pushTag(tagUint8)
		b.bytes = append(b.bytes, x)
	case uint16:
		b.pushTag(tagUint16)
		b.bytes = binary.LittleEndian.AppendUint16(b.bytes, x)
	case uint32:
		b.pushTag(tagUint32)
		b.bytes = binary.LittleEndian.AppendUint32(b.bytes, x)
	case uint64:
		b.pushTag(tagUint64)
		b.bytes = binary.LittleEndian.AppendUint64(b.bytes, x)
	case uint:
		b.pushTag(tagUint)
		b.bytes = binary.LittleEndian.AppendUint64(b.bytes, uint64(x))
	case int8:
		b.pushTag(tagInt8)
		b.bytes = append(b.bytes, byte(x))
	case int16:
		b.pushTag(tagInt16)
		b.bytes = binary.LittleEndian.AppendUint16(b.bytes, uint16(x))
	case int32:
		b.pushTag(tagInt32)
		b.bytes = binary.LittleEndian.AppendUint32(b.bytes, uint32(x))
	case int64:
		b.pushTag(tagInt64)
		b.bytes = binary.LittleEndian.AppendUint64(b.bytes, uint64(x))
	case int:
		b.pushTag(tagInt)
		b.bytes = binary.LittleEndian.AppendUint64(b.bytes, uint64(x))
	case string:
		b.pushTag(tagString)
		b.pushVarint(uint64(len(x)))
		b.bytes = append(b.bytes, x...)
	case []byte:
		b.pushTag(tagBytes)
		b.pushVarint(uint64(len(x)))
		b.bytes = append(b.bytes, x...)
	default:
		panic(fmt.Sprintf("multiposeidon: unsupported input type %T", v))
	}
}

func (b *packingBuffer[E, PE]) pushTag(tag byte) {
	b.bytes = append(b.bytes, tag)
}

// pushVarint appends a LEB128-style variable-length unsigned integer.
func (b *packingBuffer[E, PE]) pushVarint(v uint64) {
	for v >= 0x80 {
		b.bytes = append(b.bytes, byte(v&0x7F|0x80))
		v >>= 7
	}
	b.bytes = append(b.bytes, byte(v))
}

// extractFieldElements drains only whole chunks, leaving any remainder
// buffered for streaming. Drained bytes are zeroed as they convert.
func (b *packingBuffer[E, PE]) extractFieldElements() []E {
	var out []E
	switch b.config.Mode {
	case ByteEfficient:
		for len(b.bytes) >= b.maxBytesPerField {
			chunk := b.bytes[:b.maxBytesPerField]
			out = append(out, fromLEBytesModOrder[E, PE](chunk))
			zeroBytes(chunk)
			b.bytes = b.bytes[b.maxBytesPerField:]
		}
	case CircuitFriendly:
		for _, by := range b.bytes {
			var e E
			PE(&e).SetUint64(uint64(by))
			out = append(out, e)
		}
		zeroBytes(b.bytes)
		b.bytes = b.bytes[:0]
	default:
		panic(fmt.Sprintf("multiposeidon: unknown packing mode %d", b.config.Mode))
	}
	return out
}

// flushRemaining forces out any partial chunk. In byte-efficient mode the
// remainder is completed per the padding policy; in circuit-friendly mode
// every remaining byte becomes its own element.
func (b *packingBuffer[E, PE]) flushRemaining() []E {
	if len(b.bytes) == 0 {
		return nil
	}
	if b.config.Mode == CircuitFriendly {
		return b.extractFieldElements()
	}

	padded := make([]byte, 0, b.maxBytesPerField+1)
	if b.config.Padding == LengthPrefix {
		padded = append(padded, byte(len(b.bytes)))
	}
	padded = append(padded, b.bytes...)
	for len(padded) < b.maxBytesPerField {
		padded = append(padded, 0)
	}
	zeroBytes(b.bytes)
	b.bytes = b.bytes[:0]

	e := fromLEBytesModOrder[E, PE](padded)
	zeroBytes(padded)
	return []E{e}
}

func (b *packingBuffer[E, PE]) len() int { return len(b.bytes) }

// wipe zeroes the buffered bytes and empties the queue.
func (b *packingBuffer[E, PE]) wipe() {
	zeroBytes(b.bytes)
	b.bytes = b.bytes[:0]
}

func (b *packingBuffer[E, PE]) clone() *packingBuffer[E, PE] {
	cp := *b
	cp.bytes = make([]byte, len(b.bytes))
	copy(cp.bytes, b.bytes)
	return &cp
}

func zeroBytes(bs []byte) {
	for i := range bs {
		bs[i] = 0
	}
}
