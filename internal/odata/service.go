package odata

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/koustreak/odatasql/internal/database"
	"github.com/koustreak/odatasql/internal/errs"
	"github.com/koustreak/odatasql/internal/logger"
	"github.com/koustreak/odatasql/internal/schema"
)

var tracer = otel.Tracer("odatasql/odata")

// Service answers OData and browse requests. Every call opens its own
// session and closes it before returning.
type Service struct {
	provider database.Provider
	catalog  schema.Catalog
}

// NewService creates a service over provider. A nil catalog uses the
// default SQL Server introspector.
func NewService(provider database.Provider, catalog schema.Catalog) *Service {
	if catalog == nil {
		catalog = schema.NewIntrospector(nil)
	}
	return &Service{provider: provider, catalog: catalog}
}

// ServiceDocument renders the entity set listing of c.Database.
func (s *Service) ServiceDocument(ctx context.Context, c Context) (_ []byte, err error) {
	ctx, span := startSpan(ctx, "odata.ServiceDocument", c)
	defer func() { endSpan(span, err) }()

	sess, err := s.open(ctx, c.Database)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	objects, err := s.catalog.ListObjects(ctx, sess, c.Database)
	if err != nil {
		return nil, err
	}
	return RenderServiceDocument(c, uniqueNames(ctx, objects))
}

// Metadata renders the CSDL document of c.Database. Every object is
// described in listing order.
func (s *Service) Metadata(ctx context.Context, c Context) (_ []byte, err error) {
	ctx, span := startSpan(ctx, "odata.Metadata", c)
	defer func() { endSpan(span, err) }()

	sess, err := s.open(ctx, c.Database)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	objects, err := s.catalog.ListObjects(ctx, sess, c.Database)
	if err != nil {
		return nil, err
	}

	objects = uniqueNames(ctx, objects)
	schemas := make([]*schema.EntitySchema, 0, len(objects))
	for _, obj := range objects {
		es, err := s.catalog.Describe(ctx, sess, obj)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, es)
	}
	span.SetAttributes(attribute.Int("odata.entity_types", len(schemas)))

	return RenderMetadataDocument(c, schemas)
}

// EntityCollection fetches every row of c.Object and renders it.
func (s *Service) EntityCollection(ctx context.Context, c Context) (_ []byte, err error) {
	ctx, span := startSpan(ctx, "odata.EntityCollection", c)
	defer func() { endSpan(span, err) }()

	sess, err := s.open(ctx, c.Database)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	obj, err := s.catalog.FindObject(ctx, sess, c.Database, c.Object)
	if err != nil {
		return nil, err
	}

	rs, err := database.Fetch(ctx, sess, database.SelectAll(obj.Schema, obj.Name))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("odata.count", len(rs.Records)))

	return RenderEntityCollection(c, rs.Columns, rs.Records)
}

// Databases lists the user databases visible to the configured login.
func (s *Service) Databases(ctx context.Context) ([]string, error) {
	sess, err := s.provider.Open(ctx, "")
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return s.catalog.ListDatabases(ctx, sess)
}

// Objects lists the tables and views of dbName.
func (s *Service) Objects(ctx context.Context, dbName string) ([]schema.DatabaseObject, error) {
	sess, err := s.open(ctx, dbName)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return s.catalog.ListObjects(ctx, sess, dbName)
}

// Describe returns the entity schema of one object.
func (s *Service) Describe(ctx context.Context, dbName, name string) (*schema.EntitySchema, error) {
	sess, err := s.open(ctx, dbName)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return s.catalog.DescribeObject(ctx, sess, dbName, name)
}

// Ping checks that the server accepts connections.
func (s *Service) Ping(ctx context.Context) error {
	return s.provider.Ping(ctx)
}

// open checks dbName against the enumerated database list on a
// server-level session and only then binds a session to it. Unlisted names
// never reach the provider.
func (s *Service) open(ctx context.Context, dbName string) (database.Session, error) {
	srv, err := s.provider.Open(ctx, "")
	if err != nil {
		return nil, err
	}
	err = s.catalog.CheckDatabase(ctx, srv, dbName)
	_ = srv.Close()
	if err != nil {
		return nil, err
	}

	sess, err := s.provider.Open(ctx, dbName)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "Database not found or not accessible", err)
		}
		return nil, err
	}
	return sess, nil
}

// uniqueNames keeps the first object for each bare name. Entity sets are
// addressed by bare name, so later duplicates from other schemas are not
// reachable.
func uniqueNames(ctx context.Context, objects []schema.DatabaseObject) []schema.DatabaseObject {
	seen := make(map[string]schema.DatabaseObject, len(objects))
	out := make([]schema.DatabaseObject, 0, len(objects))
	for _, o := range objects {
		if first, ok := seen[o.Name]; ok {
			logger.FromContext(ctx).With().
				Str("object", o.Name).
				Str("schema", o.Schema).
				Str("shadowed_by", first.Schema).
				Logger().
				Warn("duplicate object name, skipping")
			continue
		}
		seen[o.Name] = o
		out = append(out, o)
	}
	return out
}

func startSpan(ctx context.Context, name string, c Context) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("db.name", c.Database)}
	if c.Object != "" {
		attrs = append(attrs, attribute.String("odata.entity_set", c.Object))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errs.KindOf(err).String())
	}
	span.End()
}
