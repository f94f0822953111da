package utils

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("round-trip-secret")
	id := primitive.NewObjectID()

	token, err := GenerateToken(id, []string{"admin", "sales"})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != id.Hex() {
		t.Errorf("UserID = %s, want %s", claims.UserID, id.Hex())
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin" {
		t.Errorf("Roles = %v, want [admin sales]", claims.Roles)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	SetSecret("original")
	token, err := GenerateToken(primitive.NewObjectID(), []string{"admin"})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	SetSecret("rotated")
	if _, err := ValidateToken(token); err == nil {
		t.Fatal("token signed with the old secret validated after rotation")
	}
}
