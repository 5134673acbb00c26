package config

import (
	"context"
	"errors"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/betslip-tracker/internal/blobstore"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

// mockStore is a mock implementation of blobstore.Store
type mockStore struct {
	objects map[string][]byte
	getErr  error
	gets    int
}

func (m *mockStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return data, nil
}

func (m *mockStore) Put(context.Context, string, string, []byte) error  { return nil }
func (m *mockStore) Exists(context.Context, string, string) (bool, error) { return false, nil }
func (m *mockStore) Delete(context.Context, string, string) error        { return nil }
func (m *mockStore) Close() error                                        { return nil }

var _ = Describe("Load", func() {
	It("applies defaults", func() {
		cfg, _, err := Load(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Scanner).To(Equal("gemini"))
		Expect(cfg.GeminiModel).To(Equal("gemini-2.5-flash"))
		Expect(cfg.BlobBackend).To(Equal("gcs"))
		Expect(cfg.RedirectURL).To(Equal("http://localhost:8080/oauth-callback"))
		Expect(cfg.AcceptLegacyState).To(BeFalse())
	})

	It("reads the link state settings", func() {
		cfg, _, err := Load([]string{"--link-secret", "s3cret", "--accept-unsigned-state"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LinkSecret).To(Equal("s3cret"))
		Expect(cfg.AcceptLegacyState).To(BeTrue())
	})

	It("reads flags", func() {
		cfg, _, err := Load([]string{"--bucket", "slips", "--blob-backend", "bolt", "--telegram-token", "t"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Bucket).To(Equal("slips"))
		Expect(cfg.TelegramToken).To(Equal("t"))
		Expect(cfg.BlobOptions().Backend).To(Equal("bolt"))
	})

	It("reads prefixed environment variables", func() {
		os.Setenv("BETSLIP_BOT_REDIS_ADDR", "cache:6379")
		DeferCleanup(os.Unsetenv, "BETSLIP_BOT_REDIS_ADDR")

		cfg, _, err := Load(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.RedisAddr).To(Equal("cache:6379"))
	})

	It("rejects unknown flags with usage text", func() {
		_, usage, err := Load([]string{"--nope"})
		Expect(err).To(HaveOccurred())
		Expect(usage).To(ContainSubstring("--blob-backend"))
	})

	It("reports help requests", func() {
		_, _, err := Load([]string{"--help"})
		Expect(errors.Is(err, ErrHelp)).To(BeTrue())
	})
})

var _ = Describe("ParseBootstrap", func() {
	It("reads key=value lines", func() {
		values := ParseBootstrap([]byte("telegram_bot_token=123:abc\n\n# comment\ngoogle_gemini_api_key = key=with=equals \nbroken line\n"))
		Expect(values).To(Equal(map[string]string{
			"telegram_bot_token":    "123:abc",
			"google_gemini_api_key": "key=with=equals",
		}))
	})
})

var _ = Describe("Config", func() {
	var (
		cfg   Config
		store *mockStore
	)

	BeforeEach(func() {
		cfg, _, _ = Load([]string{"--bucket", "slips"})
		store = &mockStore{objects: map[string][]byte{
			"slips/config.txt": []byte("telegram_bot_token=tg\ngoogle_gemini_api_key=gm\ngoogle_client_id=cid\ngoogle_client_secret=sec\n"),
		}}
	})

	Describe("Bootstrap", func() {
		It("fills missing secrets from the bucket", func() {
			Expect(cfg.Bootstrap(context.Background(), store)).To(Succeed())
			Expect(cfg.TelegramToken).To(Equal("tg"))
			Expect(cfg.GeminiKey).To(Equal("gm"))
			Expect(cfg.GoogleClientID).To(Equal("cid"))
			Expect(cfg.GoogleClientSecret).To(Equal("sec"))
		})

		It("reads the link state secret when present", func() {
			store.objects["slips/config.txt"] = append(store.objects["slips/config.txt"], []byte("link_state_secret=lss\n")...)
			Expect(cfg.Bootstrap(context.Background(), store)).To(Succeed())
			Expect(cfg.LinkSecret).To(Equal("lss"))
		})

		It("keeps values that were set explicitly", func() {
			cfg.TelegramToken = "from-flag"
			Expect(cfg.Bootstrap(context.Background(), store)).To(Succeed())
			Expect(cfg.TelegramToken).To(Equal("from-flag"))
		})

		It("skips the download when nothing is missing", func() {
			cfg.TelegramToken, cfg.GeminiKey, cfg.GoogleClientID, cfg.GoogleClientSecret = "a", "b", "c", "d"
			Expect(cfg.Bootstrap(context.Background(), store)).To(Succeed())
			Expect(store.gets).To(BeZero())
		})

		It("tolerates a missing object", func() {
			store.objects = map[string][]byte{}
			Expect(cfg.Bootstrap(context.Background(), store)).To(Succeed())
			Expect(cfg.TelegramToken).To(BeEmpty())
		})

		It("reports storage failures", func() {
			store.getErr = errors.New("permission denied")
			Expect(cfg.Bootstrap(context.Background(), store)).To(MatchError(ContainSubstring("downloading config.txt")))
		})
	})

	Describe("Validate", func() {
		It("passes once bootstrapped", func() {
			Expect(cfg.Bootstrap(context.Background(), store)).To(Succeed())
			Expect(cfg.Validate()).To(Succeed())
		})

		It("lists every missing setting", func() {
			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("telegram token")))
			Expect(err).To(MatchError(ContainSubstring("gemini key")))
			Expect(err).To(MatchError(ContainSubstring("google client id")))
		})

		It("does not need a gemini key for ollama", func() {
			Expect(cfg.Bootstrap(context.Background(), store)).To(Succeed())
			cfg.GeminiKey = ""
			cfg.Scanner = "ollama"
			Expect(cfg.Validate()).To(Succeed())
		})

		It("rejects unknown scanners", func() {
			cfg.Scanner = "tesseract"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("invalid scanner")))
		})
	})

	Describe("StateKey", func() {
		It("prefers the link secret", func() {
			cfg.LinkSecret, cfg.GoogleClientSecret = "link", "client"
			Expect(cfg.StateKey()).To(Equal([]byte("link")))
		})

		It("falls back to the client secret", func() {
			cfg.LinkSecret, cfg.GoogleClientSecret = "", "client"
			Expect(cfg.StateKey()).To(Equal([]byte("client")))
		})
	})

	Describe("CallbackPath", func() {
		It("uses the redirect url path", func() {
			cfg.RedirectURL = "https://bot.example.com/auth/google"
			Expect(cfg.CallbackPath()).To(Equal("/auth/google"))
		})

		It("rejects relative urls", func() {
			cfg.RedirectURL = "/oauth-callback"
			_, err := cfg.CallbackPath()
			Expect(err).To(HaveOccurred())
		})
	})
})
