package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/zombor/betslip-tracker/internal/credential"
)

var _ = Describe("GoogleBackend", func() {
	var (
		ctx     context.Context
		server  *ghttp.Server
		backend Backend
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = ghttp.NewServer()

		connector := NewGoogleConnector(option.WithEndpoint(server.URL() + "/"))
		var err error
		backend, err = connector.Connect(ctx, &credential.Credential{
			AccessToken: "access-1",
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Hour),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("FindSpreadsheet", func() {
		It("queries drive with the user's access token", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/files"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer access-1"),
				func(_ http.ResponseWriter, r *http.Request) {
					Expect(r.URL.Query().Get("q")).To(Equal(driveQuery("Track_record_42")))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"files": []map[string]string{
						{"id": "other", "name": "Track_record_421"},
						{"id": "abc", "name": "Track_record_42"},
					},
				}),
			))

			id, found, err := backend.FindSpreadsheet(ctx, "Track_record_42")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(id).To(Equal("abc"))
		})

		It("reports no match", func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"files": []any{}}))

			_, found, err := backend.FindSpreadsheet(ctx, "Track_record_42")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("surfaces a rejected access token without calling it a denied grant", func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"code": 401, "message": "Request had invalid authentication credentials.", "status": "UNAUTHENTICATED"},
			}))

			_, _, err := backend.FindSpreadsheet(ctx, "Track_record_42")
			Expect(err).To(HaveOccurred())
			Expect(unauthenticated(err)).To(BeTrue())
			Expect(credential.IsPermanentDenial(err)).To(BeFalse())
		})
	})

	Describe("CreateSpreadsheet", func() {
		It("creates a titled spreadsheet", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v4/spreadsheets"),
				func(_ http.ResponseWriter, r *http.Request) {
					var ss gsheets.Spreadsheet
					body, err := io.ReadAll(r.Body)
					Expect(err).NotTo(HaveOccurred())
					Expect(json.Unmarshal(body, &ss)).To(Succeed())
					Expect(ss.Properties.Title).To(Equal("Track_record_42"))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"spreadsheetId": "new-id"}),
			))

			id, err := backend.CreateSpreadsheet(ctx, "Track_record_42")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("new-id"))
		})
	})

	Describe("ReadRows", func() {
		It("stringifies every cell", func() {
			server.RouteToHandler(http.MethodGet, regexp.MustCompile(`^/v4/spreadsheets/abc/values/`),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"range":  "Sheet1!A1:M2",
					"values": [][]any{{"ID", "Date"}, {"a1b2c3d4", 1.85}},
				}),
			)

			rows, err := backend.ReadRows(ctx, "abc", dataRange)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([][]string{{"ID", "Date"}, {"a1b2c3d4", "1.85"}}))
		})

		It("returns no rows for an empty sheet", func() {
			server.RouteToHandler(http.MethodGet, regexp.MustCompile(`^/v4/spreadsheets/abc/values/`),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"range": "Sheet1!A1:M1000"}),
			)

			rows, err := backend.ReadRows(ctx, "abc", dataRange)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})
	})

	Describe("BatchWrite", func() {
		It("sends every range in one RAW request", func() {
			var got gsheets.BatchUpdateValuesRequest
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v4/spreadsheets/abc/values:batchUpdate"),
				func(_ http.ResponseWriter, r *http.Request) {
					body, err := io.ReadAll(r.Body)
					Expect(err).NotTo(HaveOccurred())
					Expect(json.Unmarshal(body, &got)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"spreadsheetId": "abc"}),
			))

			err := backend.BatchWrite(ctx, "abc", []RangeValues{
				{Range: "Sheet1!A1:M1", Values: [][]string{{"ID"}}},
				{Range: "Sheet1!A2:M2", Values: [][]string{{"a1b2c3d4"}}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.ReceivedRequests()).To(HaveLen(1))
			Expect(got.ValueInputOption).To(Equal("RAW"))
			Expect(got.Data).To(HaveLen(2))
			Expect(got.Data[1].Range).To(Equal("Sheet1!A2:M2"))
			Expect(got.Data[1].Values).To(Equal([][]any{{"a1b2c3d4"}}))
		})
	})
})
