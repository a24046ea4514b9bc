package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"

	"github.com/Alijeyrad/notifyhub/internal/repo"
	"github.com/Alijeyrad/notifyhub/internal/repo/repotest"
)

func seedCatalog(t *testing.T, client *repo.Client) (*repo.Medium, *repo.Action) {
	t.Helper()
	ctx := context.Background()

	m, err := client.Medium.Create(ctx, &repo.Medium{Name: "email", DisplayName: "Email"})
	if err != nil {
		t.Fatalf("create medium: %v", err)
	}
	a, err := client.Action.Create(ctx, &repo.Action{Name: "posted", DisplayName: "Posted"})
	if err != nil {
		t.Fatalf("create action: %v", err)
	}
	return m, a
}

func TestMediumGetByName(t *testing.T) {
	client := repotest.Open(t)
	ctx := context.Background()
	m, _ := seedCatalog(t, client)

	got, err := client.Medium.GetByName(ctx, "email")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if got.ID != m.ID || got.DisplayName != "Email" {
		t.Errorf("GetByName() = %+v, want %+v", got, m)
	}

	_, err = client.Medium.GetByName(ctx, "sms")
	if !repo.IsNotFound(err) {
		t.Errorf("Expected not found error, got %v", err)
	}

	_, err = client.Medium.Create(ctx, &repo.Medium{Name: "email"})
	if !repo.IsConstraintError(err) {
		t.Errorf("Expected constraint error for duplicate name, got %v", err)
	}
}

func TestSubscriptionRoundTrip(t *testing.T) {
	client := repotest.Open(t)
	ctx := context.Background()
	m, a := seedCatalog(t, client)

	subType := "user"
	followed := &repo.Entity{Type: "board", ID: 9}
	created, err := client.Subscription.Create(ctx, &repo.Subscription{
		MediumID:       m.ID,
		ActionID:       &a.ID,
		Entity:         repo.Entity{Type: "team", ID: 1},
		SubentityType:  &subType,
		FollowedEntity: followed,
	})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	subs, err := client.Subscription.Query(ctx, repo.SubscriberIs(repo.Entity{Type: "team", ID: 1}))
	if err != nil {
		t.Fatalf("query subscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("Expected 1 subscription, got %d", len(subs))
	}
	got := subs[0]
	if got.ID != created.ID || !got.IsGroup() || *got.ActionID != a.ID {
		t.Errorf("unexpected subscription %+v", got)
	}
	if got.FollowedEntity == nil || *got.FollowedEntity != *followed {
		t.Errorf("FollowedEntity = %v, want %v", got.FollowedEntity, followed)
	}
	if got.FollowedSubentityType != nil {
		t.Errorf("FollowedSubentityType = %v, want nil", *got.FollowedSubentityType)
	}

	ids, err := client.Subscription.MediumIDs(ctx, repo.GroupRuleFor("user"), repo.ActionMatches(a.ID))
	if err != nil {
		t.Fatalf("MediumIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != m.ID {
		t.Errorf("MediumIDs() = %v, want [%d]", ids, m.ID)
	}

	if err := client.Subscription.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete subscription: %v", err)
	}
	if err := client.Subscription.Delete(ctx, created.ID); !repo.IsNotFound(err) {
		t.Errorf("Expected not found on second delete, got %v", err)
	}
}

func TestEntityInMixedTypes(t *testing.T) {
	client := repotest.Open(t)
	ctx := context.Background()
	m, _ := seedCatalog(t, client)

	for _, e := range []repo.Entity{{Type: "user", ID: 1}, {Type: "user", ID: 2}, {Type: "team", ID: 1}} {
		if _, err := client.Subscription.Create(ctx, &repo.Subscription{MediumID: m.ID, Entity: e}); err != nil {
			t.Fatalf("create subscription: %v", err)
		}
	}

	owners, err := client.Subscription.Subscribers(ctx, repo.SubscriberIn([]repo.Entity{
		{Type: "user", ID: 2},
		{Type: "team", ID: 1},
		{Type: "team", ID: 2},
	}))
	if err != nil {
		t.Fatalf("Subscribers failed: %v", err)
	}
	want := []repo.Entity{{Type: "team", ID: 1}, {Type: "user", ID: 2}}
	if len(owners) != len(want) {
		t.Fatalf("Subscribers() = %v, want %v", owners, want)
	}
	for i := range want {
		if owners[i] != want[i] {
			t.Errorf("Subscribers()[%d] = %v, want %v", i, owners[i], want[i])
		}
	}

	none, err := client.Subscription.Subscribers(ctx, repo.SubscriberIn(nil))
	if err != nil {
		t.Fatalf("Subscribers failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no subscribers for empty set, got %v", none)
	}
}

func TestLabel(t *testing.T) {
	client := repotest.Open(t)
	ctx := context.Background()
	m, _ := seedCatalog(t, client)

	got, err := client.Label(ctx, "mediums", "name", m.ID)
	if err != nil {
		t.Fatalf("Label failed: %v", err)
	}
	if got != m.Name {
		t.Errorf("Label() = %q, want %q", got, m.Name)
	}
	if _, err := client.Label(ctx, "mediums", "name", m.ID+100); !repo.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestViewerRule(t *testing.T) {
	client := repotest.Open(t)
	ctx := context.Background()
	m, _ := seedCatalog(t, client)

	viewer := repo.Entity{Type: "user", ID: 1}
	team := repo.Entity{Type: "team", ID: 1}
	other := repo.Entity{Type: "team", ID: 2}
	rules := []*repo.Subscription{
		{MediumID: m.ID, Entity: viewer},
		{MediumID: m.ID, Entity: viewer, SubentityType: lo.ToPtr("user")},
		{MediumID: m.ID, Entity: team, SubentityType: lo.ToPtr("user")},
		{MediumID: m.ID, Entity: team, SubentityType: lo.ToPtr("bot")},
		{MediumID: m.ID, Entity: team},
		{MediumID: m.ID, Entity: other, SubentityType: lo.ToPtr("user")},
	}
	for i, r := range rules {
		created, err := client.Subscription.Create(ctx, r)
		if err != nil {
			t.Fatalf("create subscription: %v", err)
		}
		rules[i] = created
	}

	tests := []struct {
		name   string
		supers []repo.Entity
		want   []int64
	}{
		{name: "no supers", supers: nil, want: []int64{rules[0].ID}},
		{name: "one team", supers: []repo.Entity{team}, want: []int64{rules[0].ID, rules[2].ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Subscription.Query(ctx, repo.ViewerRule(viewer, tt.supers))
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			ids := lo.Map(got, func(s *repo.Subscription, _ int) int64 { return s.ID })
			if len(ids) != len(tt.want) {
				t.Fatalf("ViewerRule matched %v, want %v", ids, tt.want)
			}
			for i := range tt.want {
				if ids[i] != tt.want[i] {
					t.Errorf("ViewerRule matched[%d] = %d, want %d", i, ids[i], tt.want[i])
				}
			}
		})
	}
}

func TestNotificationCreateAndQuery(t *testing.T) {
	client := repotest.Open(t)
	ctx := context.Background()
	m, a := seedCatalog(t, client)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := base.Add(24 * time.Hour)
	first, err := client.Notification.Create(ctx, &repo.Notification{
		Actor:       repo.Entity{Type: "user", ID: 2},
		ActionID:    a.ID,
		Target:      &repo.Entity{Type: "board", ID: 4},
		Context:     map[string]any{"title": "A Board"},
		TimeCreated: base,
		TimeExpires: &expires,
		EventID:     "evt-1",
	})
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if _, err := client.Notification.Create(ctx, &repo.Notification{
		Actor:       repo.Entity{Type: "user", ID: 3},
		ActionID:    a.ID,
		TimeCreated: base,
		EventID:     "evt-2",
	}); err != nil {
		t.Fatalf("create notification: %v", err)
	}

	_, err = client.Notification.Create(ctx, &repo.Notification{
		Actor:       repo.Entity{Type: "user", ID: 2},
		ActionID:    a.ID,
		TimeCreated: base,
		EventID:     "evt-1",
	})
	if !repo.IsConstraintError(err) {
		t.Errorf("Expected constraint error for duplicate event id, got %v", err)
	}

	ns, err := client.Notification.Query(ctx)
	if err != nil {
		t.Fatalf("query notifications: %v", err)
	}
	if len(ns) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(ns))
	}
	if ns[0].ID != first.ID {
		t.Errorf("Expected equal timestamps to be ordered by id")
	}
	got := ns[0]
	if got.Action == nil || got.Action.Name != "posted" {
		t.Errorf("Action edge not loaded: %+v", got.Action)
	}
	if got.Context["title"] != "A Board" {
		t.Errorf("Context = %v", got.Context)
	}
	if got.Target == nil || got.Target.ID != 4 || got.ActionObject != nil {
		t.Errorf("unexpected references target=%v object=%v", got.Target, got.ActionObject)
	}
	if got.TimeExpires == nil || !got.TimeExpires.Equal(expires) {
		t.Errorf("TimeExpires = %v, want %v", got.TimeExpires, expires)
	}

	if err := client.Delivery.CreateBulk(ctx, first.ID, m.ID); err != nil {
		t.Fatalf("create deliveries: %v", err)
	}
	n, err := client.Delivery.MarkSeen(ctx, m.ID, base, first.ID)
	if err != nil || n != 1 {
		t.Fatalf("MarkSeen() = %d, %v; want 1, nil", n, err)
	}
	n, err = client.Delivery.MarkSeen(ctx, m.ID, base.Add(time.Hour), first.ID)
	if err != nil || n != 0 {
		t.Fatalf("second MarkSeen() = %d, %v; want 0, nil", n, err)
	}
	ds, err := client.Delivery.Query(ctx, first.ID)
	if err != nil {
		t.Fatalf("query deliveries: %v", err)
	}
	if len(ds) != 1 || ds[0].TimeSeen == nil || !ds[0].TimeSeen.Equal(base) {
		t.Errorf("Expected first seen time to be kept, got %+v", ds)
	}
}

func TestRelationships(t *testing.T) {
	client := repotest.Open(t)
	ctx := context.Background()

	team := repo.Entity{Type: "team", ID: 1}
	for _, u := range []int64{2, 1} {
		if err := client.Relationship.Create(ctx, team, repo.Entity{Type: "user", ID: u}); err != nil {
			t.Fatalf("create relationship: %v", err)
		}
	}
	if err := client.Relationship.Create(ctx, team, repo.Entity{Type: "user", ID: 1}); err != nil {
		t.Errorf("Expected duplicate link to be a no-op, got %v", err)
	}

	subs, err := client.Relationship.Subs(ctx, team, "user")
	if err != nil {
		t.Fatalf("Subs failed: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != 1 || subs[1].ID != 2 {
		t.Errorf("Subs() = %v", subs)
	}

	supers, err := client.Relationship.Supers(ctx, repo.Entity{Type: "user", ID: 2})
	if err != nil {
		t.Fatalf("Supers failed: %v", err)
	}
	if len(supers) != 1 || supers[0] != team {
		t.Errorf("Supers() = %v, want [%v]", supers, team)
	}
}
