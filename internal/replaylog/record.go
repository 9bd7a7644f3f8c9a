// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package replaylog implements the append-only replay event stream (§4.A):
// every allocation, write, and copy a mutation performs is recorded here, so
// a crashing mutation can be reconstructed deterministically without rerunning
// the whole generation tree.
package replaylog

import (
	"encoding/binary"
	"fmt"
)

// EventType tags a Record.
type EventType uint32

const (
	EventBegin EventType = iota
	EventAllocate
	EventWrite
	EventCopy
)

func (e EventType) String() string {
	switch e {
	case EventBegin:
		return "begin"
	case EventAllocate:
		return "allocate"
	case EventWrite:
		return "write"
	case EventCopy:
		return "copy"
	default:
		return fmt.Sprintf("event(%d)", uint32(e))
	}
}

// CurrentVersion is the only record version this package writes or accepts.
const CurrentVersion uint32 = 0

// MaxInlineValue bounds how many bytes of a Write record's payload are
// carried inline in Value.
const MaxInlineValue = 16

// RecordSize is the fixed on-disk size of every record, regardless of kind.
const RecordSize = 4 + 4 + 8 + 8 + MaxInlineValue // 40 bytes

// Record is one fixed-size entry in the log.
//
// Location/Length are interpreted per EventType:
//   - Begin:     Location = CallCount, Length = Identity token.
//   - Allocate:  Location = allocation id, Length = byte length.
//   - Write:     Location = write target id, Length = payload length (<=16), Value holds the bytes.
//   - Copy:      Location = source id, Length = byte length, Value[0:8] = destination id,
//     Value[8:16] = source start offset (for the wraparound copy §4.B "Resize" performs).
type Record struct {
	Version   uint32
	EventType EventType
	Location  uint64
	Length    uint64
	Value     [MaxInlineValue]byte
}

// Marshal encodes the record into its fixed-width wire form.
func (r Record) Marshal() []byte {
	b := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(b[0:4], r.Version)
	binary.LittleEndian.PutUint32(b[4:8], uint32(r.EventType))
	binary.LittleEndian.PutUint64(b[8:16], r.Location)
	binary.LittleEndian.PutUint64(b[16:24], r.Length)
	copy(b[24:24+MaxInlineValue], r.Value[:])
	return b
}

// Unmarshal decodes a fixed-width record. It errors on anything other than
// exactly RecordSize bytes.
func Unmarshal(b []byte) (Record, error) {
	var r Record
	if len(b) != RecordSize {
		return r, fmt.Errorf("replaylog: record must be %d bytes, got %d", RecordSize, len(b))
	}
	r.Version = binary.LittleEndian.Uint32(b[0:4])
	r.EventType = EventType(binary.LittleEndian.Uint32(b[4:8]))
	r.Location = binary.LittleEndian.Uint64(b[8:16])
	r.Length = binary.LittleEndian.Uint64(b[16:24])
	copy(r.Value[:], b[24:24+MaxInlineValue])
	return r, nil
}

// Validate rejects records a compliant writer would never produce: unknown
// version, or a write payload larger than the inline value area.
func (r Record) Validate() error {
	if r.Version != CurrentVersion {
		return fmt.Errorf("replaylog: unsupported version %d", r.Version)
	}
	if r.EventType == EventWrite && r.Length > MaxInlineValue {
		return fmt.Errorf("replaylog: write length %d exceeds %d", r.Length, MaxInlineValue)
	}
	return nil
}

func beginRecord(callCount, identity uint64) Record {
	return Record{Version: CurrentVersion, EventType: EventBegin, Location: callCount, Length: identity}
}

func allocateRecord(loc, length uint64) Record {
	return Record{Version: CurrentVersion, EventType: EventAllocate, Location: loc, Length: length}
}

func writeRecord(loc uint64, value []byte) (Record, error) {
	if len(value) > MaxInlineValue {
		return Record{}, fmt.Errorf("replaylog: write of %d bytes exceeds inline limit %d", len(value), MaxInlineValue)
	}
	r := Record{Version: CurrentVersion, EventType: EventWrite, Location: loc, Length: uint64(len(value))}
	copy(r.Value[:], value)
	return r, nil
}

func copyRecord(src, dest, length, start uint64) Record {
	r := Record{Version: CurrentVersion, EventType: EventCopy, Location: src, Length: length}
	binary.LittleEndian.PutUint64(r.Value[0:8], dest)
	binary.LittleEndian.PutUint64(r.Value[8:16], start)
	return r
}

// Dest extracts the destination id packed into a Copy record's Value field.
func (r Record) Dest() uint64 {
	return binary.LittleEndian.Uint64(r.Value[0:8])
}

// Start extracts the source start offset packed into a Copy record's Value
// field.
func (r Record) Start() uint64 {
	return binary.LittleEndian.Uint64(r.Value[8:16])
}
