// Package mocks provides centralized mock implementations for testing.
//
// Instead of defining inline mocks in individual test files, tests that only
// need a canned collaborator use these. Each mock has function fields that
// override the default behavior, plus call tracking for assertions.
//
//	gen := mocks.NewEchoGenerator()
//	gen.SetErr(generation.ErrQuotaExceeded)
//
//	tokens := &mocks.MockTokenService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return &auth.Claims{Subject: "operator"}, nil
//	    },
//	}
package mocks
