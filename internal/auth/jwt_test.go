package auth

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateAdminToken(secret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("not a JWT: %q", token)
	}

	claims, err := ParseAdminToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("subject: got %q", claims.Subject)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, _ := GenerateAdminToken(secret)
	if _, err := ParseAdminToken(token, "other-secret"); err == nil {
		t.Fatal("accepted a token signed with the wrong secret")
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := ParseAdminToken("not.a.token", secret); err == nil {
		t.Fatal("accepted garbage")
	}
}

func TestParse_WrongSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "intruder"}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAdminToken(signed, secret); err == nil {
		t.Fatal("accepted a non-admin subject")
	}
}

func TestParse_NoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "admin"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAdminToken(signed, secret); err == nil {
		t.Fatal(`accepted an alg:"none" token`)
	}
}
