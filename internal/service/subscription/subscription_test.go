package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/Alijeyrad/notifyhub/internal/graph"
	"github.com/Alijeyrad/notifyhub/internal/repo"
	"github.com/Alijeyrad/notifyhub/internal/repo/repotest"
)

var (
	wes   = repo.Entity{Type: "user", ID: 1}
	jared = repo.Entity{Type: "user", ID: 2}
	josh  = repo.Entity{Type: "user", ID: 3}
	jeff  = repo.Entity{Type: "user", ID: 4}

	teamRed  = repo.Entity{Type: "team", ID: 1}
	teamBlue = repo.Entity{Type: "team", ID: 2}
	club     = repo.Entity{Type: "club", ID: 1}
)

type fixture struct {
	svc      Service
	email    *repo.Medium
	newsFeed *repo.Medium
	wokeUp   *repo.Action
	punched  *repo.Action
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := repotest.Open(t)

	g := graph.NewStatic().
		Link(teamRed, wes, jared).
		Link(teamBlue, jared, josh, jeff).
		Link(club, wes)

	f := &fixture{svc: New(db, g)}
	var err error
	if f.email, err = db.Medium.Create(ctx, &repo.Medium{Name: "email"}); err != nil {
		t.Fatalf("create medium: %v", err)
	}
	if f.newsFeed, err = db.Medium.Create(ctx, &repo.Medium{Name: "news_feed"}); err != nil {
		t.Fatalf("create medium: %v", err)
	}
	if f.wokeUp, err = db.Action.Create(ctx, &repo.Action{Name: "woke_up"}); err != nil {
		t.Fatalf("create action: %v", err)
	}
	if f.punched, err = db.Action.Create(ctx, &repo.Action{Name: "punched"}); err != nil {
		t.Fatalf("create action: %v", err)
	}
	return f
}

func (f *fixture) subscribe(t *testing.T, req SubscribeRequest) *repo.Subscription {
	t.Helper()
	sub, err := f.svc.Subscribe(context.Background(), req)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	return sub
}

func (f *fixture) unsubscribe(t *testing.T, req UnsubscribeRequest) *repo.Unsubscribe {
	t.Helper()
	u, err := f.svc.Unsubscribe(context.Background(), req)
	if err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	return u
}

func (f *fixture) isSubscribed(t *testing.T, a *repo.Action, m *repo.Medium, e repo.Entity, subType string) bool {
	t.Helper()
	ok, err := f.svc.IsSubscribed(context.Background(), a, m, e, subType)
	if err != nil {
		t.Fatalf("IsSubscribed failed: %v", err)
	}
	return ok
}

func mediumNames(ms []*repo.Medium) map[string]bool {
	out := make(map[string]bool, len(ms))
	for _, m := range ms {
		out[m.Name] = true
	}
	return out
}

func TestWildcardAction(t *testing.T) {
	f := newFixture(t)

	f.subscribe(t, SubscribeRequest{Entity: wes, MediumID: f.email.ID})
	f.subscribe(t, SubscribeRequest{Entity: josh, MediumID: f.email.ID, ActionID: &f.punched.ID})

	for _, a := range []*repo.Action{f.wokeUp, f.punched} {
		if !f.isSubscribed(t, a, f.email, wes, "") {
			t.Errorf("Expected wildcard subscription to match %s", a.Name)
		}
	}
	if !f.isSubscribed(t, f.punched, f.email, josh, "") {
		t.Error("Expected pinned subscription to match its action")
	}
	if f.isSubscribed(t, f.wokeUp, f.email, josh, "") {
		t.Error("Expected pinned subscription not to match another action")
	}
	if f.isSubscribed(t, f.punched, f.newsFeed, josh, "") {
		t.Error("Expected subscription not to leak to another medium")
	}
}

func TestMediumsSubscribedThroughGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.subscribe(t, SubscribeRequest{Entity: teamRed, MediumID: f.email.ID, SubentityType: "user"})
	f.subscribe(t, SubscribeRequest{Entity: jared, MediumID: f.newsFeed.ID, ActionID: &f.wokeUp.ID})
	// a group rule for another type does not reach users
	f.subscribe(t, SubscribeRequest{Entity: teamBlue, MediumID: f.newsFeed.ID, SubentityType: "bot"})

	ms, err := f.svc.MediumsSubscribed(ctx, f.wokeUp, jared, "")
	if err != nil {
		t.Fatalf("MediumsSubscribed failed: %v", err)
	}
	got := mediumNames(ms)
	if len(got) != 2 || !got["email"] || !got["news_feed"] {
		t.Errorf("MediumsSubscribed(woke_up, jared) = %v, want email and news_feed", got)
	}

	ms, err = f.svc.MediumsSubscribed(ctx, f.punched, jared, "")
	if err != nil {
		t.Fatalf("MediumsSubscribed failed: %v", err)
	}
	if got := mediumNames(ms); len(got) != 1 || !got["email"] {
		t.Errorf("MediumsSubscribed(punched, jared) = %v, want email", got)
	}

	ms, err = f.svc.MediumsSubscribed(ctx, f.punched, josh, "")
	if err != nil {
		t.Fatalf("MediumsSubscribed failed: %v", err)
	}
	if len(ms) != 0 {
		t.Errorf("Expected no mediums for josh, got %v", mediumNames(ms))
	}

	// the group owner itself is not a member
	if f.isSubscribed(t, f.punched, f.email, teamRed, "") {
		t.Error("Expected group rule not to apply to its owner")
	}
}

func TestUnsubscribeDominance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// three independent grants for wes on email
	f.subscribe(t, SubscribeRequest{Entity: wes, MediumID: f.email.ID})
	f.subscribe(t, SubscribeRequest{Entity: wes, MediumID: f.email.ID, ActionID: &f.punched.ID})
	f.subscribe(t, SubscribeRequest{Entity: teamRed, MediumID: f.email.ID, SubentityType: "user"})
	f.subscribe(t, SubscribeRequest{Entity: wes, MediumID: f.newsFeed.ID})

	f.unsubscribe(t, UnsubscribeRequest{Entity: wes, MediumID: f.email.ID, ActionID: &f.punched.ID})

	if f.isSubscribed(t, f.punched, f.email, wes, "") {
		t.Error("Expected unsubscribe to win over every subscription")
	}
	if !f.isSubscribed(t, f.wokeUp, f.email, wes, "") {
		t.Error("Expected unsubscribe to leave other actions alone")
	}
	if !f.isSubscribed(t, f.punched, f.email, jared, "") {
		t.Error("Expected unsubscribe to affect only its owner")
	}

	ms, err := f.svc.MediumsSubscribed(ctx, f.punched, wes, "")
	if err != nil {
		t.Fatalf("MediumsSubscribed failed: %v", err)
	}
	if got := mediumNames(ms); len(got) != 1 || !got["news_feed"] {
		t.Errorf("MediumsSubscribed(punched, wes) = %v, want news_feed", got)
	}

	unsubscribed, err := f.svc.IsUnsubscribed(ctx, f.punched, f.email, wes)
	if err != nil || !unsubscribed {
		t.Errorf("IsUnsubscribed() = %v, %v; want true", unsubscribed, err)
	}

	// wildcard unsubscribe covers every action
	f.unsubscribe(t, UnsubscribeRequest{Entity: wes, MediumID: f.newsFeed.ID})
	if f.isSubscribed(t, f.wokeUp, f.newsFeed, wes, "") {
		t.Error("Expected wildcard unsubscribe to match woke_up")
	}
}

func TestFollowScopedUnsubscribeIgnoredByResolver(t *testing.T) {
	f := newFixture(t)

	f.subscribe(t, SubscribeRequest{Entity: wes, MediumID: f.email.ID})
	f.unsubscribe(t, UnsubscribeRequest{Entity: wes, MediumID: f.email.ID, FollowedEntity: &jared})

	if !f.isSubscribed(t, f.wokeUp, f.email, wes, "") {
		t.Error("Expected unsubscribe from one followed entity not to drop the medium")
	}
}

func TestGroupAggregation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// jared is in both red and blue; wes is in red and club
	f.subscribe(t, SubscribeRequest{Entity: teamBlue, MediumID: f.email.ID, ActionID: &f.wokeUp.ID, SubentityType: "user"})
	f.subscribe(t, SubscribeRequest{Entity: club, MediumID: f.newsFeed.ID, SubentityType: "user"})
	f.subscribe(t, SubscribeRequest{Entity: teamRed, MediumID: f.email.ID, SubentityType: "user"})
	// group mode does not subtract personal opt-outs
	f.unsubscribe(t, UnsubscribeRequest{Entity: wes, MediumID: f.newsFeed.ID})

	ms, err := f.svc.MediumsSubscribed(ctx, f.wokeUp, teamRed, "user")
	if err != nil {
		t.Fatalf("MediumsSubscribed failed: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("Expected 2 deduplicated mediums, got %d", len(ms))
	}
	if got := mediumNames(ms); !got["email"] || !got["news_feed"] {
		t.Errorf("MediumsSubscribed(woke_up, red, user) = %v", got)
	}

	if !f.isSubscribed(t, f.wokeUp, f.newsFeed, teamRed, "user") {
		t.Error("Expected club rule to reach red through wes")
	}
	if !f.isSubscribed(t, f.punched, f.email, teamBlue, "user") {
		t.Error("Expected red rule to reach blue through jared")
	}

	ms, err = f.svc.MediumsSubscribed(ctx, f.wokeUp, teamRed, "bot")
	if err != nil {
		t.Fatalf("MediumsSubscribed failed: %v", err)
	}
	if len(ms) != 0 {
		t.Errorf("Expected no mediums for a type without members, got %v", mediumNames(ms))
	}
}

func TestFilterNotSubscribed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.subscribe(t, SubscribeRequest{Entity: wes, MediumID: f.email.ID})
	f.subscribe(t, SubscribeRequest{Entity: teamBlue, MediumID: f.email.ID, SubentityType: "user", ActionID: &f.wokeUp.ID})
	f.unsubscribe(t, UnsubscribeRequest{Entity: jared, MediumID: f.email.ID})
	// unrelated medium
	f.subscribe(t, SubscribeRequest{Entity: jared, MediumID: f.newsFeed.ID})

	got, err := f.svc.FilterNotSubscribed(ctx, f.wokeUp, f.email, []repo.Entity{jeff, jared, wes, josh, jeff})
	if err != nil {
		t.Fatalf("FilterNotSubscribed failed: %v", err)
	}
	want := []repo.Entity{jeff, wes, josh}
	if len(got) != len(want) {
		t.Fatalf("FilterNotSubscribed() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FilterNotSubscribed()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	got, err = f.svc.FilterNotSubscribed(ctx, f.punched, f.email, []repo.Entity{jeff, wes})
	if err != nil {
		t.Fatalf("FilterNotSubscribed failed: %v", err)
	}
	if len(got) != 1 || got[0] != wes {
		t.Errorf("FilterNotSubscribed(punched) = %v, want [%v]", got, wes)
	}

	got, err = f.svc.FilterNotSubscribed(ctx, f.punched, f.email, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("FilterNotSubscribed(nil) = %v, %v; want empty", got, err)
	}
}

func TestFilterNotSubscribedMixedTypes(t *testing.T) {
	f := newFixture(t)

	// nil action and medium prove validation runs before anything else
	_, err := f.svc.FilterNotSubscribed(context.Background(), nil, nil, []repo.Entity{wes, teamRed})
	if !errors.Is(err, ErrMixedEntityTypes) {
		t.Errorf("Expected ErrMixedEntityTypes, got %v", err)
	}
}

type countingGraph struct {
	graph.Client
	supers int
	subs   int
}

func (c *countingGraph) SuperEntities(ctx context.Context, e repo.Entity) ([]repo.Entity, error) {
	c.supers++
	return c.Client.SuperEntities(ctx, e)
}

func (c *countingGraph) SubEntities(ctx context.Context, e repo.Entity, typ string) ([]repo.Entity, error) {
	c.subs++
	return c.Client.SubEntities(ctx, e, typ)
}

func TestFilterNotSubscribedManyGroupRules(t *testing.T) {
	ctx := context.Background()
	db := repotest.Open(t)

	member := repo.Entity{Type: "user", ID: 10}
	loner := repo.Entity{Type: "user", ID: 11}
	static := graph.NewStatic()
	for id := int64(100); id < 600; id++ {
		team := repo.Entity{Type: "team", ID: id}
		if id == 599 {
			static.Link(team, member)
		} else {
			static.Link(team, repo.Entity{Type: "user", ID: 1000 + id})
		}
	}
	g := &countingGraph{Client: static}
	svc := New(db, g)

	email, err := db.Medium.Create(ctx, &repo.Medium{Name: "email"})
	if err != nil {
		t.Fatalf("create medium: %v", err)
	}
	wokeUp, err := db.Action.Create(ctx, &repo.Action{Name: "woke_up"})
	if err != nil {
		t.Fatalf("create action: %v", err)
	}
	for id := int64(100); id < 600; id++ {
		req := SubscribeRequest{Entity: repo.Entity{Type: "team", ID: id}, MediumID: email.ID, SubentityType: "user"}
		if _, err := svc.Subscribe(ctx, req); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	tests := []struct {
		name       string
		batch      []repo.Entity
		want       []repo.Entity
		wantSupers int
	}{
		{name: "no memberships", batch: []repo.Entity{loner}, want: nil, wantSupers: 1},
		{name: "member of one ruled team", batch: []repo.Entity{loner, member}, want: []repo.Entity{member}, wantSupers: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.supers, g.subs = 0, 0
			got, err := svc.FilterNotSubscribed(ctx, wokeUp, email, tt.batch)
			if err != nil {
				t.Fatalf("FilterNotSubscribed failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FilterNotSubscribed() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("FilterNotSubscribed()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
			if g.subs != 0 {
				t.Errorf("Expected no member expansion, got %d SubEntities calls", g.subs)
			}
			if g.supers != tt.wantSupers {
				t.Errorf("Expected %d SuperEntities calls, got %d", tt.wantSupers, g.supers)
			}
		})
	}
}

func TestRuleManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     SubscribeRequest
		wantErr error
	}{
		{name: "missing entity", req: SubscribeRequest{MediumID: f.email.ID}, wantErr: ErrEmptyRule},
		{name: "missing medium", req: SubscribeRequest{Entity: wes}, wantErr: ErrMediumRequired},
		{
			name:    "followed subentity without followed entity",
			req:     SubscribeRequest{Entity: wes, MediumID: f.email.ID, FollowedSubentityType: "user"},
			wantErr: ErrFollowWithoutEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Subscribe(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	sub := f.subscribe(t, SubscribeRequest{Entity: wes, MediumID: f.email.ID, FollowedEntity: &teamRed, FollowedSubentityType: "user"})
	u := f.unsubscribe(t, UnsubscribeRequest{Entity: wes, MediumID: f.email.ID})

	subs, err := f.svc.SubscriptionsFor(ctx, wes)
	if err != nil {
		t.Fatalf("SubscriptionsFor failed: %v", err)
	}
	if len(subs) != 1 || subs[0].FollowedSubentityType == nil || *subs[0].FollowedSubentityType != "user" {
		t.Errorf("SubscriptionsFor() = %+v", subs)
	}
	us, err := f.svc.UnsubscribesFor(ctx, wes)
	if err != nil || len(us) != 1 {
		t.Errorf("UnsubscribesFor() = %v, %v", us, err)
	}

	if err := f.svc.RemoveSubscription(ctx, sub.ID); err != nil {
		t.Fatalf("RemoveSubscription failed: %v", err)
	}
	if err := f.svc.RemoveSubscription(ctx, sub.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound, got %v", err)
	}
	if err := f.svc.RemoveUnsubscribe(ctx, u.ID); err != nil {
		t.Fatalf("RemoveUnsubscribe failed: %v", err)
	}
	if err := f.svc.RemoveUnsubscribe(ctx, u.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound, got %v", err)
	}
}
