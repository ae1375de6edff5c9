// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestModuleName_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   ModuleName
		wantErr bool
	}{
		{"simple", "translation", false},
		{"with dash and digits", "text-gen-2", false},
		{"with dot", "my.module", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"surrounding whitespace", " mod ", true},
		{"dot", ".", true},
		{"dot dot", "..", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"leading dash", "-rf", true},
		{"reserved public key field", ReservedPublicKeyField, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.value.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ModuleName(%q).Validate() = nil, want error", tt.value)
				}
				if !errors.Is(err, ErrInvalidModuleName) {
					t.Errorf("error should wrap ErrInvalidModuleName, got: %v", err)
				}
				var nameErr *InvalidModuleNameError
				if !errors.As(err, &nameErr) {
					t.Errorf("error should be *InvalidModuleNameError, got: %T", err)
				}
				if ok, errs := tt.value.IsValid(); ok || len(errs) != 1 {
					t.Errorf("IsValid() = %v, %v; want false with one error", ok, errs)
				}
				return
			}
			if err != nil {
				t.Errorf("ModuleName(%q).Validate() = %v, want nil", tt.value, err)
			}
		})
	}
}
