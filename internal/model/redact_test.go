package model

import "testing"

func TestIsSensitiveKey(t *testing.T) {
	sensitive := []string{"password", "PASSWORD", "db_password", "api_key", "X-Api-Key", "client_secret", "refresh_token", "ssh_private_key", "passphrase"}
	for _, k := range sensitive {
		if !IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = false, want true", k)
		}
	}
	benign := []string{"owner", "note", "team", "uri", "pass_rate"}
	for _, k := range benign {
		if IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = true, want false", k)
		}
	}
}

func TestRedactExtra_CopiesWithoutMutating(t *testing.T) {
	in := Extra{"password": "hunter2", "owner": "data-eng"}
	out := RedactExtra(in)

	if out["password"] != RedactedValue {
		t.Errorf("password = %v, want %q", out["password"], RedactedValue)
	}
	if out["owner"] != "data-eng" {
		t.Errorf("owner = %v", out["owner"])
	}
	if in["password"] != "hunter2" {
		t.Errorf("input mutated: %v", in)
	}
}

func TestRedactExtra_Nil(t *testing.T) {
	if RedactExtra(nil) != nil {
		t.Error("nil input should yield nil")
	}
}

func TestNormalizeURI_CollapsesEquivalentForms(t *testing.T) {
	// "é" composed vs decomposed.
	composed := "s3://bucket/café"
	decomposed := "s3://bucket/café"
	if NormalizeURI(composed) != NormalizeURI(decomposed) {
		t.Error("canonically equal URIs should normalize identically")
	}
	if NormalizeURI("s3://bucket/plain") != "s3://bucket/plain" {
		t.Error("ASCII URIs must pass through unchanged")
	}
}
