package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	defaultVectorDimension = 1024
	scrollBatchSize        = 256
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository reads precomputed card vectors out of a Qdrant collection.
// It is an alternative embedding source for the one-time bulk load; nothing
// per-request goes through it.
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewQdrantRepository creates a new QdrantRepository
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key)
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	// Build gRPC dial options
	var opts []grpc.DialOption

	// TLS is enabled if: APIKey is set OR UseTLS is explicitly true
	useTLS := cfg.UseTLS || cfg.APIKey != ""

	if useTLS {
		// Use TLS with system root certificates (TLS 1.3 minimum for Qdrant Cloud)
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		creds := credentials.NewTLS(tlsConfig)
		opts = append(opts, grpc.WithTransportCredentials(creds))

		// Add API Key authentication if provided (using unary interceptor)
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		// Local mode: no TLS, no authentication
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// CheckCollection verifies the collection exists and matches the expected
// vector dimension. Unlike an ingest path there is no create-if-missing here:
// this repository only ever consumes a collection someone else populated.
func (r *QdrantRepository) CheckCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err != nil {
		return fmt.Errorf("collection %s not reachable: %w", r.collectionName, err)
	}
	if size, ok := collectionVectorSize(info.GetResult()); ok {
		if size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
		}
	}
	return nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}

	config := info.GetConfig()
	if config == nil {
		return 0, false
	}

	params := config.GetParams()
	if params == nil {
		return 0, false
	}

	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}

	if paramsMap := vectors.GetParamsMap(); paramsMap != nil {
		for _, vectorParams := range paramsMap.GetMap() {
			if vectorParams == nil {
				continue
			}
			if size := vectorParams.GetSize(); size > 0 {
				return size, true
			}
		}
	}

	return 0, false
}

// LoadEmbeddings scrolls the entire collection and returns the card ID ->
// vector table. The card ID comes from the "card_id" payload field, falling
// back to the point ID when absent. Implements dataset.EmbeddingSource.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[string][]float32: full embedding table.
//   - error: non-nil if the scroll fails or a point carries no vector.
func (r *QdrantRepository) LoadEmbeddings(ctx context.Context) (map[string][]float32, error) {
	out := make(map[string][]float32)

	var offset *pb.PointId
	withVectors := true
	withPayload := true

	for {
		resp, err := r.pointsClient.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: r.collectionName,
			Limit:          optionalUint32(scrollBatchSize),
			Offset:         offset,
			WithVectors: &pb.WithVectorsSelector{
				SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: withVectors},
			},
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: withPayload},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll collection %s: %w", r.collectionName, err)
		}

		for _, point := range resp.GetResult() {
			id := pointCardID(point)
			vec := pointVector(point)
			if len(vec) == 0 {
				return nil, fmt.Errorf("point %s in collection %s has no vector", id, r.collectionName)
			}
			out[id] = vec
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("collection %s is empty", r.collectionName)
	}
	return out, nil
}

func optionalUint32(v uint32) *uint32 {
	return &v
}

func pointCardID(point *pb.RetrievedPoint) string {
	if payload := point.GetPayload(); payload != nil {
		if v, ok := payload["card_id"]; ok {
			if s := v.GetStringValue(); s != "" {
				return s
			}
		}
	}
	if id := point.GetId(); id != nil {
		if uid := id.GetUuid(); uid != "" {
			return uid
		}
		return fmt.Sprintf("%d", id.GetNum())
	}
	return ""
}

func pointVector(point *pb.RetrievedPoint) []float32 {
	vectors := point.GetVectors()
	if vectors == nil {
		return nil
	}
	if v := vectors.GetVector(); v != nil {
		return v.GetData()
	}
	return nil
}
