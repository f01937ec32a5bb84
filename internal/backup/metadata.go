package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/tidwall/gjson"

	"dealercrm/internal/models"
)

// Extractor counts one entity type in a serialized envelope. Path is a
// gjson path from the envelope root; a missing or non-array value leaves
// the metadata field unset.
type Extractor struct {
	Name string
	Path string
	Set  func(md *models.Metadata, n int)
}

var Extractors = []Extractor{
	{"customers", "data.customer-store.state.customers", func(md *models.Metadata, n int) { md.Customers = &n }},
	{"contracts", "data.contract-management-storage.state.contracts", func(md *models.Metadata, n int) { md.Contracts = &n }},
	{"salesTargets", "data.sales-target-storage.state.targets", func(md *models.Metadata, n int) { md.SalesTargets = &n }},
	{"estimates", "data.estimate-storage.state.estimates", func(md *models.Metadata, n int) { md.Estimates = &n }},
	{"newVehicles", "data.showroom-storage.state.newVehicles", func(md *models.Metadata, n int) { md.NewVehicles = &n }},
	{"usedVehicles", "data.showroom-storage.state.usedVehicles", func(md *models.Metadata, n int) { md.UsedVehicles = &n }},
	{"salesReps", "data.sales-target-storage.state.salesReps", func(md *models.Metadata, n int) { md.SalesReps = &n }},
	{"surveyResponses", "data.survey-storage.state.responses", func(md *models.Metadata, n int) { md.SurveyResponses = &n }},
}

// ExtractMetadata runs every extractor over payload independently.
func ExtractMetadata(payload string) models.Metadata {
	var md models.Metadata
	if !gjson.Valid(payload) {
		return md
	}
	for _, e := range Extractors {
		if n, ok := arrayLen(gjson.Get(payload, e.Path)); ok {
			e.Set(&md, n)
		}
	}
	return md
}

func arrayLen(r gjson.Result) (int, bool) {
	if !r.IsArray() {
		return 0, false
	}
	return int(r.Get("#").Int()), true
}

// Canonicalize re-serializes a JSON document with object keys sorted, so
// logically identical documents produce identical strings.
func Canonicalize(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("failed to decode payload: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(out), nil
}

// Hash is a 32-bit FNV-1a digest of payload in hex. It is a change signal
// only; collisions cost an extra write.
func Hash(payload string) string {
	h := fnv.New32a()
	h.Write([]byte(payload))
	return fmt.Sprintf("%08x", h.Sum32())
}

// ContentHash hashes the data member of a canonical envelope so that
// re-exporting unchanged storage yields the same value whatever its
// createdAt. Payloads without a data member are hashed whole.
func ContentHash(canonical string) string {
	if data := gjson.Get(canonical, "data"); data.Exists() {
		return Hash(data.Raw)
	}
	return Hash(canonical)
}
