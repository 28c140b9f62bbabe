// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"encoding/binary"

	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/storage"
)

// Key prefixes
const (
	snapshotPrefix            = "snapman"
	snapshotClausePrefix      = "snapcls"
	snapshotFingerprintPrefix = "snapfp"
	clauseIDPrefix            = "snapcid"
	profilePrefix             = "prof"
)

const (
	idSize    = 16
	indexSize = 8
)

// clauseLocation is the value stored under a clause ID index key.
// Format: snapshotID:index
type clauseLocation struct {
	snapshot core.ID
	index    int
}

// makeSnapshotKey generates a key for a snapshot manifest by ID.
// Format: prefix:id
func makeSnapshotKey(id core.ID) []byte {
	return appendID([]byte(snapshotPrefix+":"), id)
}

// makePartialSnapshotClauseKey generates the prefix shared by every clause of a snapshot.
// Format: prefix:snapshotID
func makePartialSnapshotClauseKey(snapshotID core.ID) []byte {
	return appendID([]byte(snapshotClausePrefix+":"), snapshotID)
}

// makeSnapshotClauseKey generates a composite key for a clause of a snapshot.
// Format: prefix:snapshotID:index
func makeSnapshotClauseKey(snapshotID core.ID, index int) []byte {
	buf := makePartialSnapshotClauseKey(snapshotID)
	// Write in BigEndian order so lexicographic sort follows document order
	return binary.BigEndian.AppendUint64(buf, uint64(index))
}

// makeClauseIDKey generates a key for the clause ID index.
// Format: prefix:clauseID
func makeClauseIDKey(id core.ID) []byte {
	return appendID([]byte(clauseIDPrefix+":"), id)
}

// makePartialFingerprintKey generates the prefix for a fingerprint index lookup.
// Format: prefix:fingerprint
func makePartialFingerprintKey(fingerprint uint64) []byte {
	buf := []byte(snapshotFingerprintPrefix + ":")
	return binary.BigEndian.AppendUint64(buf, fingerprint)
}

// makeFingerprintKey generates a composite key for the fingerprint index.
// Format: prefix:fingerprint:createdAt:snapshotID
func makeFingerprintKey(snapshot *core.Snapshot) []byte {
	buf := makePartialFingerprintKey(snapshot.Fingerprint)
	buf = binary.BigEndian.AppendUint64(buf, uint64(snapshot.CreatedAt.UnixMicro()))
	return appendID(buf, snapshot.ID)
}

// makeProfileKey generates a key for a profile by ID.
func makeProfileKey(id string) []byte {
	return []byte(profilePrefix + ":" + id)
}

// marshalLocation encodes a clause location as snapshotID followed by a BigEndian index.
func marshalLocation(loc clauseLocation) []byte {
	buf := appendID(make([]byte, 0, idSize+indexSize), loc.snapshot)
	return binary.BigEndian.AppendUint64(buf, uint64(loc.index))
}

// unmarshalLocation decodes a clause location.
func unmarshalLocation(data []byte) (clauseLocation, error) {
	if len(data) != idSize+indexSize {
		return clauseLocation{}, storage.ErrCorruptKey
	}
	var loc clauseLocation
	copy(loc.snapshot[:], data[:idSize])
	loc.index = int(binary.BigEndian.Uint64(data[idSize:]))
	return loc, nil
}

// idFromKeySuffix reads the trailing ID of a composite key.
func idFromKeySuffix(key []byte) (core.ID, error) {
	if len(key) < idSize {
		return core.NilID, storage.ErrCorruptKey
	}
	var id core.ID
	copy(id[:], key[len(key)-idSize:])
	return id, nil
}

func appendID(buf []byte, id core.ID) []byte {
	return append(buf, id[:]...)
}
