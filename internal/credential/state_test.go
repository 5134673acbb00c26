package credential

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StateSigner", func() {
	var (
		clock  *mockTimeSource
		signer *StateSigner
	)

	BeforeEach(func() {
		clock = &mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
		signer = NewStateSignerWithDeps([]byte("state-key"), time.Hour, false, clock)
	})

	It("round-trips the user ID", func() {
		state, err := signer.Sign("42")
		Expect(err).NotTo(HaveOccurred())
		userID, err := signer.Verify(state)
		Expect(err).NotTo(HaveOccurred())
		Expect(userID).To(Equal("42"))
	})

	It("rejects a state signed with another key", func() {
		other := NewStateSignerWithDeps([]byte("other-key"), time.Hour, false, clock)
		state, err := other.Sign("42")
		Expect(err).NotTo(HaveOccurred())

		_, err = signer.Verify(state)
		Expect(err).To(MatchError(ErrInvalidState))
	})

	It("rejects a state naming a different user", func() {
		state, err := signer.Sign("42")
		Expect(err).NotTo(HaveOccurred())
		parts := strings.Split(state, ".")
		forged, err := signer.Sign("43")
		Expect(err).NotTo(HaveOccurred())
		// payload of 43 with the signature of 42
		tampered := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]

		_, err = signer.Verify(tampered)
		Expect(err).To(MatchError(ErrInvalidState))
	})

	It("rejects an expired state", func() {
		state, err := signer.Sign("42")
		Expect(err).NotTo(HaveOccurred())
		clock.now = clock.now.Add(2 * time.Hour)

		_, err = signer.Verify(state)
		Expect(err).To(MatchError(ErrInvalidState))
	})

	It("rejects unsigned tokens", func() {
		state, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).NotTo(HaveOccurred())

		_, err = signer.Verify(state)
		Expect(err).To(MatchError(ErrInvalidState))
	})

	When("legacy states are not accepted", func() {
		It("rejects a bare user ID", func() {
			_, err := signer.Verify("42")
			Expect(err).To(MatchError(ErrInvalidState))
		})
	})

	When("legacy states are accepted", func() {
		BeforeEach(func() {
			signer = NewStateSignerWithDeps([]byte("state-key"), time.Hour, true, clock)
		})

		It("accepts a bare numeric user ID", func() {
			userID, err := signer.Verify("42")
			Expect(err).NotTo(HaveOccurred())
			Expect(userID).To(Equal("42"))
		})

		It("still rejects arbitrary text", func() {
			_, err := signer.Verify("not-a-user")
			Expect(err).To(MatchError(ErrInvalidState))
		})
	})
})
