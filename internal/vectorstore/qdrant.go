package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// qdrantOriginalIDField stores the caller-supplied id in the point payload,
// since Qdrant only accepts UUIDs or unsigned integers as point ids.
const qdrantOriginalIDField = "_original_id"

// QdrantStore is a Store backed by Qdrant's gRPC API (default port 6334).
//
// Grounded on manifold's databases.qdrantVector, widened from per-id
// Upsert/Delete/SimilaritySearch to the batch Upsert/DeleteWhere/GetWhere/
// Query/Count contract this system's components call.
type QdrantStore struct {
	client    *qdrant.Client
	dimension int
}

// NewQdrantStore dials Qdrant at dsn (e.g. "http://localhost:6334" or
// "https://host:6334?api_key=..."). Collections are created lazily on first
// use via EnsureCollection.
func NewQdrantStore(dsn string, dimension int) (*QdrantStore, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant dsn: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &QdrantStore{client: client, dimension: dimension}, nil
}

// EnsureCollection creates collection with cosine distance if it does not
// already exist.
func (q *QdrantStore) EnsureCollection(ctx context.Context, collection string) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	if q.dimension <= 0 {
		return fmt.Errorf("qdrant requires dimension > 0")
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func pointIDFor(id string) (string, bool) {
	if _, err := uuid.Parse(id); err == nil {
		return id, false
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String(), true
}

func (q *QdrantStore) Upsert(ctx context.Context, collection string, ids []string, vectors [][]float32, texts []string, metadatas []Metadata) error {
	if err := q.EnsureCollection(ctx, collection); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, 0, len(ids))
	for i, id := range ids {
		if q.dimension > 0 && len(vectors[i]) != q.dimension {
			return fmt.Errorf("%w: %s has %d values, want %d", ErrDimensionMismatch, id, len(vectors[i]), q.dimension)
		}
		pointID, remapped := pointIDFor(id)
		payload := make(map[string]any, len(metadatas[i])+2)
		for k, v := range metadatas[i] {
			payload[k] = v
		}
		payload["_text"] = texts[i]
		if remapped {
			payload[qdrantOriginalIDField] = id
		}
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: collection, Points: points})
	return err
}

func qdrantFilter(filter Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		must = append(must, qdrant.NewMatch(k, fmt.Sprintf("%v", v)))
	}
	return &qdrant.Filter{Must: must}
}

func (q *QdrantStore) DeleteWhere(ctx context.Context, collection string, filter Filter) error {
	qf := qdrantFilter(filter)
	if qf == nil {
		return fmt.Errorf("delete_where requires a non-empty filter")
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(qf),
	})
	return err
}

func (q *QdrantStore) GetWhere(ctx context.Context, collection string, filter Filter) ([]Entry, error) {
	limit := uint32(10000)
	result, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         qdrantFilter(filter),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(result))
	for _, p := range result {
		out = append(out, Entry{ID: entryID(p.Id, p.Payload), Metadata: payloadToMetadata(p.Payload)})
	}
	return out, nil
}

func (q *QdrantStore) Query(ctx context.Context, collection string, vector []float32, n int, filter Filter) ([]QueryHit, error) {
	if n <= 0 {
		n = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	limit := uint64(n)
	result, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         qdrantFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	hits := make([]QueryHit, 0, len(result))
	for _, hit := range result {
		md := payloadToMetadata(hit.Payload)
		text, _ := md["_text"].(string)
		delete(md, "_text")
		hits = append(hits, QueryHit{
			ID:       entryID(hit.Id, hit.Payload),
			Text:     text,
			Metadata: md,
			Distance: 1 - float64(hit.Score),
		})
	}
	return hits, nil
}

func (q *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	exact := true
	result, err := q.client.Count(ctx, &qdrant.CountPoints{CollectionName: collection, Exact: &exact})
	if err != nil {
		return 0, err
	}
	return int(result), nil
}

func (q *QdrantStore) Close() error { return q.client.Close() }

func entryID(id *qdrant.PointId, payload map[string]*qdrant.Value) string {
	if payload != nil {
		if v, ok := payload[qdrantOriginalIDField]; ok {
			return v.GetStringValue()
		}
	}
	if id == nil {
		return ""
	}
	if uuidStr := id.GetUuid(); uuidStr != "" {
		return uuidStr
	}
	return id.String()
}

func payloadToMetadata(payload map[string]*qdrant.Value) Metadata {
	md := make(Metadata, len(payload))
	for k, v := range payload {
		if k == qdrantOriginalIDField {
			continue
		}
		md[k] = qdrantValueToMeta(v)
	}
	return md
}

// qdrantValueToMeta unwraps a payload Value by its populated oneof variant,
// not by comparing to the Go zero value — chunk_index and start_char are
// legitimately 0 for a document's first chunk, and a zero-value comparison
// would misreport that as BoolValue(false).
func qdrantValueToMeta(v *qdrant.Value) MetaValue {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}
