package credential

import (
	"context"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/googleapi"

	"github.com/zombor/betslip-tracker/internal/blobstore"
)

var _ = Describe("BlobRepository", func() {
	var (
		ctx   context.Context
		store *blobstore.Local
		repo  *BlobRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = blobstore.NewLocal(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		repo = NewBlobRepository(store, "tokens-bucket")
	})

	It("stores the credential under the per-user token key", func() {
		Expect(repo.Save(ctx, "42", &Credential{AccessToken: "a"})).To(Succeed())
		found, err := store.Exists(ctx, "tokens-bucket", "bot_user_tokens/42/token.json")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
	})

	It("round-trips expiry and scopes", func() {
		expiry := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
		Expect(repo.Save(ctx, "42", &Credential{AccessToken: "a", RefreshToken: "r", Expiry: expiry, Scopes: Scopes})).To(Succeed())

		cred, err := repo.Load(ctx, "42")
		Expect(err).NotTo(HaveOccurred())
		Expect(cred.Expiry.Equal(expiry)).To(BeTrue())
		Expect(cred.Scopes).To(Equal(Scopes))
	})

	It("returns ErrNotFound for an unknown user", func() {
		_, err := repo.Load(ctx, "nobody")
		Expect(err).To(MatchError(ErrNotFound))
	})

	It("reports corrupt blobs as errors", func() {
		Expect(store.Put(ctx, "tokens-bucket", TokenKey("42"), []byte("{not json"))).To(Succeed())
		_, err := repo.Load(ctx, "42")
		Expect(err).To(MatchError(ContainSubstring("decoding token")))
	})

	It("reads legacy authorized-user blobs", func() {
		legacy := `{"token":"legacy-access","refresh_token":"r","expiry":"2024-01-15T11:00:00Z","scopes":["s"]}`
		Expect(store.Put(ctx, "tokens-bucket", TokenKey("42"), []byte(legacy))).To(Succeed())

		cred, err := repo.Load(ctx, "42")
		Expect(err).NotTo(HaveOccurred())
		Expect(cred.AccessToken).To(Equal("legacy-access"))
		Expect(cred.RefreshToken).To(Equal("r"))
	})

	It("deletes idempotently", func() {
		Expect(repo.Save(ctx, "42", &Credential{AccessToken: "a"})).To(Succeed())
		Expect(repo.Delete(ctx, "42")).To(Succeed())
		Expect(repo.Delete(ctx, "42")).To(Succeed())
		found, err := repo.Exists(ctx, "42")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})
})

var _ = Describe("IsPermanentDenial", func() {
	It("is false for nil", func() {
		Expect(IsPermanentDenial(nil)).To(BeFalse())
	})

	It("recognises revoked AuthRequiredErrors", func() {
		Expect(IsPermanentDenial(&AuthRequiredError{Reason: ReasonRevoked})).To(BeTrue())
		Expect(IsPermanentDenial(&AuthRequiredError{Reason: ReasonUnavailable})).To(BeFalse())
	})

	It("recognises invalid_grant in error text", func() {
		Expect(IsPermanentDenial(errSample("oauth2: \"invalid_grant\" \"Bad Request\""))).To(BeTrue())
		Expect(IsPermanentDenial(errSample("connection reset"))).To(BeFalse())
	})

	It("does not treat a rejected access token as a denied grant", func() {
		err := fmt.Errorf("finding spreadsheet: %w", &googleapi.Error{Code: http.StatusUnauthorized, Message: "Invalid Credentials"})
		Expect(IsPermanentDenial(err)).To(BeFalse())
	})
})

type errSample string

func (e errSample) Error() string { return string(e) }
