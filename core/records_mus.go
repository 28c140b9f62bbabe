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

package core

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted records. Floats are stored as their IEEE-754
// bit patterns so a round trip is bit-exact. Vectors are length-prefixed and
// written as little-endian float32 words.

var (
	IDMUS           = idMUS{}
	ClauseRecordMUS = clauseRecordMUS{}
	ProfileMUS      = profileMUS{}
	SnapshotMUS     = snapshotMUS{}
)

type idMUS struct{}

func (idMUS) Size(ID) int { return len(ID{}) }

func (idMUS) Marshal(id ID, bs []byte) int {
	return copy(bs, id[:])
}

func (idMUS) Unmarshal(bs []byte) (id ID, n int, err error) {
	if len(bs) < len(id) {
		return NilID, 0, ErrTruncatedRecord
	}
	n = copy(id[:], bs)
	return id, n, nil
}

func float64Size(v float64) int { return varint.Uint64.Size(math.Float64bits(v)) }

func marshalFloat64(v float64, bs []byte) int {
	return varint.Uint64.Marshal(math.Float64bits(v), bs)
}

func unmarshalFloat64(bs []byte) (float64, int, error) {
	bits, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	return math.Float64frombits(bits), n, nil
}

func vectorSize(v []float32) int {
	return varint.Int.Size(len(v)) + 4*len(v)
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		binary.LittleEndian.PutUint32(bs[n:], math.Float32bits(f))
		n += 4
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	if length < 0 || len(bs)-n < 4*length {
		return nil, n, ErrTruncatedRecord
	}
	v := make([]float32, length)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(bs[n:]))
		n += 4
	}
	return v, n, nil
}

func stringsSize(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalStrings(v []string, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrTruncatedRecord
	}
	v := make([]string, 0, length)
	for range length {
		s, m, err := ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v = append(v, s)
	}
	return v, n, nil
}

func highlightSize(h RiskHighlight) int {
	return ord.String.Size(h.Text) +
		varint.Int.Size(h.Start) +
		varint.Int.Size(h.End) +
		ord.String.Size(h.RiskType) +
		varint.Int.Size(int(h.Severity)) +
		float64Size(h.Score)
}

func marshalHighlight(h RiskHighlight, bs []byte) int {
	n := ord.String.Marshal(h.Text, bs)
	n += varint.Int.Marshal(h.Start, bs[n:])
	n += varint.Int.Marshal(h.End, bs[n:])
	n += ord.String.Marshal(h.RiskType, bs[n:])
	n += varint.Int.Marshal(int(h.Severity), bs[n:])
	n += marshalFloat64(h.Score, bs[n:])
	return n
}

func unmarshalHighlight(bs []byte) (h RiskHighlight, n int, err error) {
	var m int
	if h.Text, m, err = ord.String.Unmarshal(bs); err != nil {
		return h, n + m, err
	}
	n += m
	if h.Start, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return h, n + m, err
	}
	n += m
	if h.End, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return h, n + m, err
	}
	n += m
	if h.RiskType, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return h, n + m, err
	}
	n += m
	var severity int
	if severity, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return h, n + m, err
	}
	n += m
	h.Severity = Severity(severity)
	if h.Score, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return h, n + m, err
	}
	n += m
	return h, n, nil
}

type clauseRecordMUS struct{}

func (clauseRecordMUS) Size(v ClauseRecord) int {
	size := IDMUS.Size(v.ID) +
		varint.Int.Size(v.Index) +
		ord.String.Size(v.Text) +
		ord.String.Size(v.Section) +
		float64Size(v.RiskScore) +
		varint.Int.Size(int(v.RiskCategory)) +
		varint.Int.Size(len(v.Highlights))
	for _, h := range v.Highlights {
		size += highlightSize(h)
	}
	return size + vectorSize(v.Embedding)
}

func (clauseRecordMUS) Marshal(v ClauseRecord, bs []byte) int {
	n := IDMUS.Marshal(v.ID, bs)
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.Section, bs[n:])
	n += marshalFloat64(v.RiskScore, bs[n:])
	n += varint.Int.Marshal(int(v.RiskCategory), bs[n:])
	n += varint.Int.Marshal(len(v.Highlights), bs[n:])
	for _, h := range v.Highlights {
		n += marshalHighlight(h, bs[n:])
	}
	n += marshalVector(v.Embedding, bs[n:])
	return n
}

func (clauseRecordMUS) Unmarshal(bs []byte) (v ClauseRecord, n int, err error) {
	var m int
	if v.ID, m, err = IDMUS.Unmarshal(bs); err != nil {
		return v, m, err
	}
	n += m
	if v.Index, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Section, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.RiskScore, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	var category int
	if category, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.RiskCategory = Severity(category)
	var count int
	if count, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if count < 0 {
		return v, n, ErrTruncatedRecord
	}
	if count > 0 {
		v.Highlights = make([]RiskHighlight, 0, count)
	}
	for range count {
		h, m, err := unmarshalHighlight(bs[n:])
		n += m
		if err != nil {
			return v, n, err
		}
		v.Highlights = append(v.Highlights, h)
	}
	if v.Embedding, m, err = unmarshalVector(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	return v, n, nil
}

type profileMUS struct{}

func (profileMUS) Size(v Profile) int {
	return ord.String.Size(v.ID) +
		ord.String.Size(v.Name) +
		ord.String.Size(v.Summary) +
		stringsSize(v.Expertise) +
		ord.String.Size(v.Achievements) +
		float64Size(v.ExperienceYears) +
		float64Size(v.Reputation) +
		vectorSize(v.Embedding) +
		varint.Int64.Size(v.InsertedAt.UnixMicro())
}

func (profileMUS) Marshal(v Profile, bs []byte) int {
	n := ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += marshalStrings(v.Expertise, bs[n:])
	n += ord.String.Marshal(v.Achievements, bs[n:])
	n += marshalFloat64(v.ExperienceYears, bs[n:])
	n += marshalFloat64(v.Reputation, bs[n:])
	n += marshalVector(v.Embedding, bs[n:])
	n += varint.Int64.Marshal(v.InsertedAt.UnixMicro(), bs[n:])
	return n
}

func (profileMUS) Unmarshal(bs []byte) (v Profile, n int, err error) {
	var m int
	if v.ID, m, err = ord.String.Unmarshal(bs); err != nil {
		return v, m, err
	}
	n += m
	if v.Name, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Summary, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Expertise, m, err = unmarshalStrings(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Achievements, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.ExperienceYears, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Reputation, m, err = unmarshalFloat64(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Embedding, m, err = unmarshalVector(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	var micros int64
	if micros, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.InsertedAt = time.UnixMicro(micros).UTC()
	return v, n, nil
}

type snapshotMUS struct{}

func (snapshotMUS) Size(v Snapshot) int {
	return IDMUS.Size(v.ID) +
		ord.String.Size(v.Source) +
		varint.Uint64.Size(v.Fingerprint) +
		varint.Int.Size(v.ClauseCount) +
		varint.Int.Size(v.EmbeddedCount) +
		varint.Int64.Size(v.CreatedAt.UnixMicro())
}

func (snapshotMUS) Marshal(v Snapshot, bs []byte) int {
	n := IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Source, bs[n:])
	n += varint.Uint64.Marshal(v.Fingerprint, bs[n:])
	n += varint.Int.Marshal(v.ClauseCount, bs[n:])
	n += varint.Int.Marshal(v.EmbeddedCount, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return n
}

func (snapshotMUS) Unmarshal(bs []byte) (v Snapshot, n int, err error) {
	var m int
	if v.ID, m, err = IDMUS.Unmarshal(bs); err != nil {
		return v, m, err
	}
	n += m
	if v.Source, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Fingerprint, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.ClauseCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.EmbeddedCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	var micros int64
	if micros, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.CreatedAt = time.UnixMicro(micros).UTC()
	return v, n, nil
}
