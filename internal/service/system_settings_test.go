package service

import (
	"context"
	"testing"

	"nftvault/internal/repository/memory"
)

func TestSystemSettings_DefaultsAndOverrides(t *testing.T) {
	ctx := context.Background()
	svc := &SystemSettingsService{Repo: memory.New()}
	if err := svc.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !svc.IsEnabled(ctx, FeaturePersistence, false) {
		t.Fatalf("persistence should default on")
	}
	if svc.IsEnabled(ctx, FeatureMediaProbe, true) {
		t.Fatalf("media probe should default off")
	}
	if err := svc.SetEnabled(ctx, FeatureMediaProbe, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := svc.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if !svc.IsEnabled(ctx, FeatureMediaProbe, false) {
		t.Fatalf("override was reset by defaults")
	}
	if !svc.IsEnabled(ctx, "feature.unknown", true) {
		t.Fatalf("missing key should use fallback")
	}

	all, err := svc.List(ctx)
	if err != nil || len(all) != len(DefaultFeatureSwitches()) {
		t.Fatalf("list=%v err=%v", all, err)
	}

	var nilSvc *SystemSettingsService
	if !nilSvc.IsEnabled(ctx, FeaturePersistence, true) {
		t.Fatalf("nil service should use fallback")
	}
}
