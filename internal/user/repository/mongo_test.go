package repository

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"user-account-service/internal/user/domain"
)

func TestVersionFilter(t *testing.T) {
	f := versionFilter("u1", 3)
	if f["_id"] != "u1" || f["version"] != 3 {
		t.Errorf("filter = %v", f)
	}

	legacy := versionFilter("u1", 0)
	in, ok := legacy["version"].(bson.M)
	if !ok {
		t.Fatalf("legacy version filter = %v, want $in clause", legacy["version"])
	}
	values, _ := in["$in"].(bson.A)
	if len(values) != 2 || values[0] != 0 || values[1] != nil {
		t.Errorf("legacy $in = %v, want [0 <nil>]", values)
	}
}

func TestUpdateDocument(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	name := "Janet"
	hash := "$2a$04$hash"
	cleared := ""
	p := domain.Patch{
		FirstName:      &name,
		Phone:          &domain.Phone{DialCode: "+44", Number: "7700900"},
		PasswordHash:   &hash,
		ResetTokenHash: &cleared,
		Audit:          domain.StampAt("jane@example.com", 2, now),
	}
	update := updateDocument(p)

	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatalf("$set missing: %v", update)
	}
	if set["version"] != 3 || set["updatedBy"] != "jane@example.com" || set["updatedAt"] != now {
		t.Errorf("audit fields = %v", set)
	}
	if set["firstName"] != "Janet" || set["password"] != hash {
		t.Errorf("patched fields = %v", set)
	}
	if _, ok := set["lastName"]; ok {
		t.Error("nil LastName should not be set")
	}
	if _, ok := set["isActive"]; ok {
		t.Error("nil IsActive should not be set")
	}
	if ph, ok := set["phone"].(phoneDocument); !ok || ph.DialCode != "+44" {
		t.Errorf("phone = %v", set["phone"])
	}
	unset, ok := update["$unset"].(bson.M)
	if !ok {
		t.Fatal("cleared reset token should be unset")
	}
	if _, ok := unset["token"]; !ok {
		t.Errorf("$unset = %v, want token", unset)
	}
}

func TestUpdateDocument_SetsResetToken(t *testing.T) {
	digest := "abc123"
	update := updateDocument(domain.Patch{ResetTokenHash: &digest, Audit: domain.Stamp("a", 1)})
	if update["$set"].(bson.M)["token"] != digest {
		t.Errorf("token = %v, want digest", update["$set"].(bson.M)["token"])
	}
	if _, ok := update["$unset"]; ok {
		t.Error("$unset should be absent")
	}
}

func TestDocumentMapping(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &domain.User{
		ID: "u1", FirstName: "Jane", Email: "jane@example.com",
		Phone:        &domain.Phone{DialCode: "+1", Number: "5550100"},
		PasswordHash: "$2a$04$hash", LoginType: domain.LoginTypePassword, Role: "customer",
		IsActive: true, Version: 1, CreatedAt: now, UpdatedAt: now, CreatedBy: "jane@example.com",
		MetaStatus: domain.MetaStatusCreated,
	}
	doc := toDocument(u)
	if doc.Password != u.PasswordHash || doc.LoginType != "password" || doc.Phone.Number != "5550100" {
		t.Errorf("document = %+v", doc)
	}
	back := doc.toDomain()
	if back.Email != u.Email || back.Phone.DialCode != "+1" || !back.CreatedAt.Equal(now) || back.LoginType != domain.LoginTypePassword {
		t.Errorf("toDomain = %+v", back)
	}
}
