package engine

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/reviewdeck/pkg/models"
)

// Message types crossing the worker boundary. Responses are a tagged union:
// exactly one of the success or error variants comes back per request.
const (
	msgTypeCompute = "compute-review-derived"
	msgTypeSuccess = "compute-review-derived:success"
	msgTypeError   = "compute-review-derived:error"
)

// fingerprintPair is the serializable form fingerprints travel in; the client
// reconstructs the path-keyed map on receipt.
type fingerprintPair struct {
	Path        string `msgpack:"path"`
	Fingerprint string `msgpack:"fingerprint"`
}

type requestMessage struct {
	Type      string           `msgpack:"type"`
	RequestID uint64           `msgpack:"requestId"`
	DiffText  string           `msgpack:"diffText"`
	Comments  []models.Comment `msgpack:"comments"`
}

type responseMessage struct {
	Type         string                 `msgpack:"type"`
	RequestID    uint64                 `msgpack:"requestId"`
	FileDiffs    []models.FileDiff      `msgpack:"fileDiffs,omitempty"`
	Fingerprints []fingerprintPair      `msgpack:"fileDiffFingerprints,omitempty"`
	Threads      []models.CommentThread `msgpack:"threads,omitempty"`
	Error        string                 `msgpack:"error,omitempty"`
}

func encodeRequest(msg requestMessage) ([]byte, error) {
	frame, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("engine: encoding request %d: %w", msg.RequestID, err)
	}
	return frame, nil
}

func decodeRequest(frame []byte) (requestMessage, error) {
	var msg requestMessage
	if err := msgpack.Unmarshal(frame, &msg); err != nil {
		return msg, fmt.Errorf("engine: decoding request frame: %w", err)
	}
	return msg, nil
}

func encodeResponse(msg responseMessage) ([]byte, error) {
	frame, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("engine: encoding response %d: %w", msg.RequestID, err)
	}
	return frame, nil
}

func decodeResponse(frame []byte) (responseMessage, error) {
	var msg responseMessage
	if err := msgpack.Unmarshal(frame, &msg); err != nil {
		return msg, fmt.Errorf("engine: decoding response frame: %w", err)
	}
	return msg, nil
}

// successResponse flattens a derived-data result into its wire form. The
// fingerprint pairs follow file order so encoding stays deterministic.
func successResponse(requestID uint64, result *models.DerivedData) responseMessage {
	pairs := make([]fingerprintPair, 0, len(result.Fingerprints))
	for i := range result.FileDiffs {
		path := result.FileDiffs[i].Path()
		pairs = append(pairs, fingerprintPair{Path: path, Fingerprint: result.Fingerprints[path]})
	}
	return responseMessage{
		Type:         msgTypeSuccess,
		RequestID:    requestID,
		FileDiffs:    result.FileDiffs,
		Fingerprints: pairs,
		Threads:      result.Threads,
	}
}

// errorResponse reports an explicit per-request failure.
func errorResponse(requestID uint64, err error) responseMessage {
	return responseMessage{
		Type:      msgTypeError,
		RequestID: requestID,
		Error:     err.Error(),
	}
}
