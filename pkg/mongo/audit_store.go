package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/audit"
)

// AuditStore keeps audit entries as documents keyed by entry id.
type AuditStore struct {
	coll *mongo.Collection
}

func NewAuditStore(coll *mongo.Collection) *AuditStore {
	if coll == nil {
		panic("mongo: collection cannot be nil")
	}
	return &AuditStore{coll: coll}
}

// EnsureIndexes creates the tenant-scoped indexes used by Query.
func (s *AuditStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "resourceType", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "actorUserId", Value: 1}}},
	})
	if err != nil {
		return wrap("create indexes", err)
	}
	return nil
}

func (s *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	doc, err := toDocument(e)
	if err != nil {
		return wrap("encode audit entry", err)
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return wrap("append audit entry", err)
	}
	return nil
}

// Query counts and pages tenantID's entries, newest first.
func (s *AuditStore) Query(ctx context.Context, tenantID string, f audit.Filter) (audit.Page, error) {
	filter := filterDocument(tenantID, f)
	page := audit.Page{Limit: f.Limit, Offset: f.Offset, Entries: []audit.Entry{}}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return audit.Page{}, wrap("count audit entries", err)
	}
	page.Total = int(total)
	if page.Total == 0 || f.Offset >= page.Total {
		return page, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Offset))
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return audit.Page{}, wrap("query audit entries", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	for cur.Next(ctx) {
		var doc entryDocument
		if err := cur.Decode(&doc); err != nil {
			return audit.Page{}, wrap("decode audit entry", err)
		}
		e, err := doc.entry()
		if err != nil {
			return audit.Page{}, wrap("decode audit entry", err)
		}
		page.Entries = append(page.Entries, e)
	}
	if err := cur.Err(); err != nil {
		return audit.Page{}, wrap("query audit entries", err)
	}
	return page, nil
}

type entryDocument struct {
	ID            string         `bson:"_id"`
	TenantID      string         `bson:"tenantId"`
	ActorUserID   string         `bson:"actorUserId"`
	Action        string         `bson:"action"`
	ResourceType  string         `bson:"resourceType"`
	ResourceID    string         `bson:"resourceId,omitempty"`
	ResourceName  string         `bson:"resourceName,omitempty"`
	PreviousState bson.Raw       `bson:"previousState,omitempty"`
	NewState      bson.Raw       `bson:"newState,omitempty"`
	Metadata      map[string]any `bson:"metadata"`
	IPAddress     string         `bson:"ipAddress,omitempty"`
	UserAgent     string         `bson:"userAgent,omitempty"`
	CreatedAt     time.Time      `bson:"createdAt"`
}

// toDocument stores states through their JSON form so the stored document
// mirrors what the API returns.
func toDocument(e audit.Entry) (entryDocument, error) {
	doc := entryDocument{
		ID:           e.ID,
		TenantID:     e.TenantID,
		ActorUserID:  e.ActorUserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		ResourceName: e.ResourceName,
		Metadata:     e.Metadata,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		CreatedAt:    e.CreatedAt,
	}
	var err error
	if doc.PreviousState, err = stateToRaw(e.PreviousState); err != nil {
		return doc, err
	}
	if doc.NewState, err = stateToRaw(e.NewState); err != nil {
		return doc, err
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	return doc, nil
}

func (d entryDocument) entry() (audit.Entry, error) {
	e := audit.Entry{
		ID:           d.ID,
		TenantID:     d.TenantID,
		ActorUserID:  d.ActorUserID,
		Action:       d.Action,
		ResourceType: d.ResourceType,
		ResourceID:   d.ResourceID,
		ResourceName: d.ResourceName,
		Metadata:     d.Metadata,
		IPAddress:    d.IPAddress,
		UserAgent:    d.UserAgent,
		CreatedAt:    d.CreatedAt.UTC(),
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	var err error
	if e.PreviousState, err = rawToState(d.PreviousState); err != nil {
		return e, err
	}
	if e.NewState, err = rawToState(d.NewState); err != nil {
		return e, err
	}
	return e, nil
}

func stateToRaw(v any) (bson.Raw, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var raw bson.Raw
	if err := bson.UnmarshalExtJSON(b, false, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func rawToState(raw bson.Raw) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	b, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func filterDocument(tenantID string, f audit.Filter) bson.D {
	filter := bson.D{{Key: "tenantId", Value: tenantID}}
	if f.ResourceType != "" {
		filter = append(filter, bson.E{Key: "resourceType", Value: f.ResourceType})
	}
	if f.ActorUserID != "" {
		filter = append(filter, bson.E{Key: "actorUserId", Value: f.ActorUserID})
	}
	if f.Action != "" {
		filter = append(filter, bson.E{Key: "action", Value: f.Action})
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		rng := bson.D{}
		if !f.From.IsZero() {
			rng = append(rng, bson.E{Key: "$gte", Value: f.From})
		}
		if !f.To.IsZero() {
			rng = append(rng, bson.E{Key: "$lte", Value: f.To})
		}
		filter = append(filter, bson.E{Key: "createdAt", Value: rng})
	}
	return filter
}

func wrap(op string, err error) error {
	if IsConnectionError(err) {
		return fmt.Errorf("mongo: %s: %w", op, errors.Join(apierror.ErrUnavailable, err))
	}
	return fmt.Errorf("mongo: %s: %w", op, err)
}
