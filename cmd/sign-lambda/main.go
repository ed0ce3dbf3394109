// Command sign-lambda exposes the issuer as an AWS Lambda function. The event
// is a single claim; the response matches the signer API's /sign body.
package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/app"
	"github.com/trufnetwork/credit-attestation/internal/claim"
	"github.com/trufnetwork/credit-attestation/internal/config"
	"github.com/trufnetwork/credit-attestation/internal/issuer"
	"github.com/trufnetwork/credit-attestation/internal/signerapi"
)

// Attester is the part of the issuer the handler needs.
type Attester interface {
	Issue(ctx context.Context, req claim.Request) (*issuer.Attestation, error)
}

var (
	initOnce sync.Once
	attester Attester
	initErr  error
)

// getAttester builds the issuer on the first invocation and reuses it for the
// lifetime of the execution environment.
func getAttester(ctx context.Context) (Attester, error) {
	initOnce.Do(func() {
		cfg, err := config.LoadSigner()
		if err != nil {
			initErr = err
			return
		}
		attester, initErr = app.NewIssuer(ctx, cfg, zap.L())
	})
	return attester, initErr
}

// Handler signs one claim with the given attester.
func Handler(a Attester) func(context.Context, claim.Request) (signerapi.SignResponse, error) {
	return func(ctx context.Context, req claim.Request) (signerapi.SignResponse, error) {
		att, err := a.Issue(ctx, req)
		if err != nil {
			if issuer.IsValidationError(err) {
				return signerapi.SignResponse{}, fmt.Errorf("invalid claim: %w", err)
			}
			zap.L().Error("signing failed", zap.Error(err))
			return signerapi.SignResponse{}, fmt.Errorf("failed to sign request: %w", err)
		}
		return signerapi.NewSignResponse(att), nil
	}
}

func HandleRequest(ctx context.Context, req claim.Request) (signerapi.SignResponse, error) {
	a, err := getAttester(ctx)
	if err != nil {
		return signerapi.SignResponse{}, fmt.Errorf("failed to initialize signer: %w", err)
	}
	return Handler(a)(ctx, req)
}

func main() {
	lambda.Start(HandleRequest)
}

func init() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))
}
