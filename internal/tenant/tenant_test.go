package tenant

import (
	"context"
	"testing"
)

func TestInfo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		info    *Info
		wantErr error
	}{
		{
			name:    "valid id",
			info:    &Info{TenantID: "acct-123"},
			wantErr: nil,
		},
		{
			name:    "valid with underscore",
			info:    &Info{TenantID: "acct_123", Role: RoleAdmin},
			wantErr: nil,
		},
		{
			name:    "empty id",
			info:    &Info{},
			wantErr: ErrInvalidTenant,
		},
		{
			name:    "uppercase rejected",
			info:    &Info{TenantID: "Acct-123"},
			wantErr: ErrInvalidTenant,
		},
		{
			name:    "path separator rejected",
			info:    &Info{TenantID: "acct/123"},
			wantErr: ErrInvalidTenant,
		},
		{
			name:    "dot rejected",
			info:    &Info{TenantID: "../etc"},
			wantErr: ErrInvalidTenant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTenantContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		info := &Info{TenantID: "acct-123", Role: RoleStandard}
		ctx := ContextWithTenant(context.Background(), info)
		got, err := FromContext(ctx)
		if err != nil {
			t.Fatalf("FromContext() error = %v", err)
		}
		if got.TenantID != info.TenantID || got.Role != info.Role {
			t.Errorf("FromContext() = %+v, want %+v", got, info)
		}
	})

	t.Run("missing tenant returns error", func(t *testing.T) {
		_, err := FromContext(context.Background())
		if err != ErrMissingTenant {
			t.Errorf("FromContext() error = %v, want ErrMissingTenant", err)
		}
	})

	t.Run("nil tenant returns error", func(t *testing.T) {
		ctx := ContextWithTenant(context.Background(), nil)
		_, err := FromContext(ctx)
		if err != ErrMissingTenant {
			t.Errorf("FromContext() error = %v, want ErrMissingTenant", err)
		}
	})

	t.Run("HasTenant", func(t *testing.T) {
		if HasTenant(context.Background()) {
			t.Error("HasTenant() = true on empty context, want false")
		}
		ctx := ContextWithTenant(context.Background(), &Info{TenantID: "t1"})
		if !HasTenant(ctx) {
			t.Error("HasTenant() = false, want true")
		}
	})
}
