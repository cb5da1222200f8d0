// Package mocks provides gomock implementations of the auth ports for testing.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	backend := mocks.NewMockIdentityBackend(ctrl)
//	backend.EXPECT().SignInWithPassword(gomock.Any(), "a@b.com", "secret").Return(identity, nil)
package mocks

// Generate mocks for the identity backend, user record store and key/value store ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_backend_mock.go github.com/target/stockcam/internal/ports IdentityBackend
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_record_store_mock.go github.com/target/stockcam/internal/ports UserRecordStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=key_value_store_mock.go github.com/target/stockcam/internal/ports KeyValueStore
