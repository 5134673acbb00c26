package credential

import (
	"context"
	"net/http"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"golang.org/x/oauth2"
)

var _ = Describe("OAuthProvider", func() {
	var (
		server   *ghttp.Server
		provider *OAuthProvider
		jsonHdr  http.Header
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		provider = NewOAuthProvider(&oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "https://bot.example.com/oauth-callback",
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   server.URL() + "/auth",
				TokenURL:  server.URL() + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		})
		jsonHdr = http.Header{"Content-Type": []string{"application/json"}}
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Refresh", func() {
		var (
			tok *oauth2.Token
			err error
		)

		JustBeforeEach(func() {
			tok, err = provider.Refresh(context.Background(), "refresh-me")
		})

		When("the provider issues a new token", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/token"),
					ghttp.VerifyFormKV("grant_type", "refresh_token"),
					ghttp.VerifyFormKV("refresh_token", "refresh-me"),
					ghttp.RespondWith(http.StatusOK, `{"access_token":"new","token_type":"Bearer","expires_in":3600}`, jsonHdr),
				))
			})

			It("returns the token", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(tok.AccessToken).To(Equal("new"))
				Expect(tok.Expiry).NotTo(BeZero())
			})

			It("makes a single request", func() {
				Expect(server.ReceivedRequests()).To(HaveLen(1))
			})
		})

		When("the grant was revoked", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/token"),
					ghttp.RespondWith(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`, jsonHdr),
				))
			})

			It("returns a permanent denial", func() {
				Expect(err).To(HaveOccurred())
				Expect(IsPermanentDenial(err)).To(BeTrue())
			})
		})

		When("the provider is down", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/token"),
					ghttp.RespondWith(http.StatusServiceUnavailable, `{"error":"backend_error"}`, jsonHdr),
				))
			})

			It("returns a transient error", func() {
				Expect(err).To(HaveOccurred())
				Expect(IsPermanentDenial(err)).To(BeFalse())
			})
		})
	})

	Describe("AuthCodeURL", func() {
		It("requests offline access with the state", func() {
			u, err := url.Parse(provider.AuthCodeURL("42"))
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Query().Get("state")).To(Equal("42"))
			Expect(u.Query().Get("access_type")).To(Equal("offline"))
			Expect(u.Query().Get("prompt")).To(Equal("consent"))
		})
	})
})
