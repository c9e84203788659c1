package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janelia-flyem/voxchunk/volume"
)

// maxJSONBody bounds request bodies holding JSON.
const maxJSONBody = 64 << 20

var valueSchema = fmt.Sprintf(`{"type": "integer", "minimum": -1, "maximum": %d}`, volume.MaxBlockID)

const coordSchema = `{"type": "integer", "minimum": -2147483648, "maximum": 2147483647}`

var (
	voxelWriteSchema = jsonschema.MustCompileString("voxel.json", fmt.Sprintf(`{
		"type": "object",
		"properties": {"value": %s},
		"required": ["value"]
	}`, valueSchema))

	batchWriteSchema = jsonschema.MustCompileString("voxels.json", fmt.Sprintf(`{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {"x": %s, "y": %s, "z": %s, "value": %s},
			"required": ["x", "y", "z", "value"]
		}
	}`, coordSchema, coordSchema, coordSchema, valueSchema))

	preloadSchema = jsonschema.MustCompileString("preload.json", fmt.Sprintf(`{
		"type": "object",
		"properties": {
			"chunks": {
				"type": "array",
				"items": {"type": "array", "items": %s, "minItems": 2, "maxItems": 2}
			},
			"workers": {"type": "integer", "minimum": 1, "maximum": 256}
		},
		"required": ["chunks"]
	}`, coordSchema))
)

// decodeValidated reads a JSON body, validates it against sch, then decodes it into dst.
func decodeValidated(r *http.Request, sch *jsonschema.Schema, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return fmt.Errorf("reading request body: %v: %w", err, errBadRequest)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("request body is not JSON: %v: %w", err, errBadRequest)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("invalid request: %v: %w", err, errBadRequest)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("can't decode request: %v: %w", err, errBadRequest)
	}
	return nil
}
