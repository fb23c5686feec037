// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package validation

import (
	"strings"
	"testing"
)

type verifyRequest struct {
	TeamCode string `validate:"required,min=4,max=64"`
	HuntID   string `validate:"required,uuid"`
}

func TestValidateStructPasses(t *testing.T) {
	req := verifyRequest{
		TeamCode: "super-secret",
		HuntID:   "6f1e8f9a-2b3c-4d5e-8f90-1a2b3c4d5e6f",
	}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected valid struct, got: %v", err)
	}
}

func TestValidateStructSingleError(t *testing.T) {
	req := verifyRequest{
		TeamCode: "super-secret",
		HuntID:   "not-a-uuid",
	}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 1 {
		t.Fatalf("expected 1 error, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", apiErr.Code)
	}
	if apiErr.Details["field"] != "HuntID" {
		t.Errorf("expected field HuntID in details, got %v", apiErr.Details["field"])
	}
	if !strings.Contains(apiErr.Message, "UUID") {
		t.Errorf("expected UUID in message, got %q", apiErr.Message)
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	req := verifyRequest{}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("expected fields list in details, got %T", apiErr.Details["fields"])
	}
	if len(fields) != 2 {
		t.Errorf("expected 2 field entries, got %d", len(fields))
	}
}

func TestTranslateMinMax(t *testing.T) {
	req := verifyRequest{
		TeamCode: "abc",
		HuntID:   "6f1e8f9a-2b3c-4d5e-8f90-1a2b3c4d5e6f",
	}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error for short team code")
	}
	msg := err.Error()
	if !strings.Contains(msg, "at least 4 characters") {
		t.Errorf("expected string-specific min message, got %q", msg)
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	a := GetValidator()
	b := GetValidator()
	if a != b {
		t.Error("expected the same validator instance")
	}
}
