package service_test

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/fileblob"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/internal/localstore"
	"github.com/jacentio/fundraiser/internal/qr"
	"github.com/jacentio/fundraiser/media"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/service"
	"github.com/jacentio/fundraiser/store"
)

var (
	alice = access.Identity{Sub: "alice"}
	bob   = access.Identity{Sub: "bob"}
	carol = access.Identity{Sub: "carol"}
	dave  = access.Identity{Sub: "dave"}
	admin = access.Identity{Sub: "root", Groups: []string{"admin"}}
	anon  = access.Identity{}
)

// seqIDs hands out predictable ids.
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) next() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

func (g *seqIDs) NewID(prefix string) string {
	return fmt.Sprintf("%sid-%04d", prefix, g.next())
}

func (g *seqIDs) NewInviteCode() string {
	return fmt.Sprintf("CODE%06d", g.next())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	svc    *service.Service
	store  *localstore.Store
	tables store.Config
	clock  *fakeClock
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	tables := store.DefaultConfig()
	backend, err := localstore.New(localstore.Options{}, localstore.Layout(tables)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	base, err := url.Parse("http://localhost:8080/media")
	require.NoError(t, err)
	bucket, err := fileblob.OpenBucket(t.TempDir(), &fileblob.Options{
		URLSigner: fileblob.NewURLSignerHMAC(base, []byte("test-secret")),
	})
	require.NoError(t, err)
	invoker := media.NewBlobInvoker(bucket, time.Minute)
	t.Cleanup(func() { _ = invoker.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := service.New(backend, service.Options{
		Tables: tables,
		Media:  invoker,
		QR:     qr.NewRenderer(128, "M", "https://fundraiser.example/accept-invite"),
		IDs:    &seqIDs{},
		Clock:  clock,
	})
	return &testEnv{svc: svc, store: backend, tables: tables, clock: clock}
}

func (e *testEnv) profile(t *testing.T, owner access.Identity, name string) *model.SellerProfile {
	t.Helper()
	p, err := e.svc.CreateSellerProfile(context.Background(), owner, service.CreateProfileInput{
		SellerName: name,
		UnitType:   "Pack",
		UnitNumber: 158,
		City:       "Springfield",
		State:      "IL",
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) share(t *testing.T, owner access.Identity, profileID string, target access.Identity, perms ...string) *model.Share {
	t.Helper()
	s, err := e.svc.CreateProfileShare(context.Background(), owner, service.CreateShareInput{
		ProfileID:       profileID,
		TargetAccountID: target.Sub,
		Permissions:     perms,
	})
	require.NoError(t, err)
	return s
}

func (e *testEnv) catalog(t *testing.T, owner access.Identity, public bool) *model.Catalog {
	t.Helper()
	c, err := e.svc.CreateCatalog(context.Background(), owner, service.CreateCatalogInput{
		CatalogName: "Popcorn 2026",
		IsPublic:    public,
		Products: []service.ProductInput{
			{ProductName: "Caramel Corn", Price: 20, SortOrder: 1},
			{ProductName: "Kettle Corn", Price: 15.5, SortOrder: 2},
		},
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) campaign(t *testing.T, caller access.Identity, profileID, catalogID string) *model.Campaign {
	t.Helper()
	c, err := e.svc.CreateCampaign(context.Background(), caller, service.CreateCampaignInput{
		ProfileID:    profileID,
		CatalogID:    catalogID,
		CampaignName: "Fall Popcorn",
		CampaignYear: 2026,
		UnitType:     "Pack",
		UnitNumber:   158,
		City:         "Springfield",
		State:        "IL",
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) order(t *testing.T, caller access.Identity, campaign *model.Campaign, productID string, qty int) *model.Order {
	t.Helper()
	o, err := e.svc.CreateOrder(context.Background(), caller, service.CreateOrderInput{
		CampaignID:    campaign.CampaignID,
		CustomerName:  "Neighbor",
		LineItems:     []service.LineItemInput{{ProductID: productID, Quantity: qty}},
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	return o
}

// count returns the number of items in a table partition or index partition.
func (e *testEnv) count(t *testing.T, table, index, attr, value string) int {
	t.Helper()
	n, err := e.store.Count(context.Background(), store.QueryInput{
		TableName: table,
		IndexName: index,
		KeyAttr:   attr,
		KeyValue:  value,
	})
	require.NoError(t, err)
	return n
}
