package encryption

import (
	"testing"

	"knot-go/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ     string
		want    string
		wantErr bool
	}{
		{typ: "", want: "age"},
		{typ: "age", want: "age"},
		{typ: "test", want: "test"},
		{typ: "rot13", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			enc, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if enc != nil {
					t.Errorf("encryptor = %v, want nil", enc)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch tt.want {
			case "age":
				if _, ok := enc.(*AgeEncryptor); !ok {
					t.Errorf("got %T, want *AgeEncryptor", enc)
				}
			case "test":
				if _, ok := enc.(*TestEncryptor); !ok {
					t.Errorf("got %T, want *TestEncryptor", enc)
				}
			}
		})
	}
}
