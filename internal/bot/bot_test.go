package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/admin"
	"github.com/bydlikbot/bydlik/internal/llm"
	"github.com/bydlikbot/bydlik/internal/models"
	"github.com/bydlikbot/bydlik/internal/settings"
	"github.com/bydlikbot/bydlik/internal/storage"
)

type fakeClient struct {
	sent        []tgbotapi.MessageConfig
	memberRoles map[int64]string
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	role := f.memberRoles[config.UserID]
	if role == "" {
		role = "member"
	}
	return tgbotapi.ChatMember{Status: role}, nil
}

func (f *fakeClient) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("expected a reply, got none")
	}
	return f.sent[len(f.sent)-1].Text
}

type fakeGenerator struct {
	response string
	calls    int
}

func (f *fakeGenerator) GenerateInsult(ctx context.Context, userMessage string, level int, historyLines []string) (string, error) {
	f.calls++
	return f.response, nil
}

type fakeQuota struct {
	status llm.QuotaStatus
}

func (f *fakeQuota) Status(ctx context.Context) (*llm.QuotaStatus, error) {
	return &f.status, nil
}

func newTestBot(t *testing.T) (*Bot, *fakeClient, *storage.MemoryStorage, *fakeGenerator) {
	t.Helper()
	store := storage.NewMemoryStorage()
	logger := zap.NewNop()
	client := &fakeClient{memberRoles: map[int64]string{}}
	gen := &fakeGenerator{response: "generated"}
	quota := &fakeQuota{status: llm.QuotaStatus{Total: 100, Remaining: 42}}

	resolver := settings.NewResolver(store, logger)
	// Random insult replies would make reply assertions flaky.
	if err := resolver.SetInsultProbability(context.Background(), models.GlobalChatID, 0); err != nil {
		t.Fatalf("SetInsultProbability: %v", err)
	}

	b := newBot(client, 9000, store, resolver,
		admin.NewService(store, logger), gen, quota, logger, Options{})
	return b, client, store, gen
}

func groupMessage(userID int64, username, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: username},
		Chat:      &tgbotapi.Chat{ID: -100, Type: "supergroup"},
		Text:      text,
	}
}

func privateMessage(userID int64, username, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: username},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
}

func TestQuestionTemplateAddAndMatch(t *testing.T) {
	b, client, _, _ := newTestBot(t)
	ctx := context.Background()

	if err := b.admins.PromoteChatAdmin(ctx, 1, -100); err != nil {
		t.Fatalf("PromoteChatAdmin: %v", err)
	}

	b.handleMessage(groupMessage(1, "vasya", "Быдлик добавь вопрос тест|Привет {mention}"))
	if got := client.lastText(t); got != "Шаблон сохранён для этого чата" {
		t.Fatalf("unexpected confirmation: %q", got)
	}

	b.handleMessage(groupMessage(1, "vasya", "Быдлик тест"))
	got := client.lastText(t)
	if !strings.HasPrefix(got, "Привет ") {
		t.Fatalf("expected template reply, got %q", got)
	}
}

func TestDefaultTemplateMatch(t *testing.T) {
	b, client, _, _ := newTestBot(t)

	b.handleMessage(groupMessage(1, "vasya", "Быдлик кто самый умный"))
	if len(client.sent) == 0 {
		t.Fatal("expected a reply to a default template trigger")
	}
}

func TestBanRequiresAdmin(t *testing.T) {
	b, client, _, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(groupMessage(1, "vasya", "Быдлик бан 123 10м"))
	got := client.lastText(t)
	if !strings.Contains(got, "администратор") {
		t.Fatalf("expected denial, got %q", got)
	}
	if ban, err := b.store.GetChatBan(ctx, 123, -100); err != nil || ban != nil {
		t.Fatalf("ban must not be stored: ban=%v err=%v", ban, err)
	}
}

func TestBanAndSilence(t *testing.T) {
	b, client, _, _ := newTestBot(t)
	ctx := context.Background()

	if err := b.admins.PromoteChatAdmin(ctx, 1, -100); err != nil {
		t.Fatalf("PromoteChatAdmin: %v", err)
	}
	b.handleMessage(groupMessage(2, "petya", "привет"))

	b.handleMessage(groupMessage(1, "vasya", "Быдлик бан @petya 10м"))
	if got := client.lastText(t); !strings.Contains(got, "забанен") {
		t.Fatalf("expected ban confirmation, got %q", got)
	}

	before := len(client.sent)
	b.handleMessage(groupMessage(2, "petya", "Быдлик когда меня разбанят"))
	if len(client.sent) != before {
		t.Fatal("banned user must be ignored")
	}

	b.handleMessage(groupMessage(1, "vasya", "Быдлик разбан @petya"))
	if got := client.lastText(t); !strings.Contains(got, "разбанен") {
		t.Fatalf("expected unban confirmation, got %q", got)
	}

	b.handleMessage(groupMessage(2, "petya", "Быдлик когда меня позовут"))
	if len(client.sent) == before+1 {
		t.Fatal("unbanned user must be answered again")
	}
}

func TestInsultLevelOneNeverGenerates(t *testing.T) {
	b, _, _, gen := newTestBot(t)
	ctx := context.Background()

	if err := b.settings.SetInsultLevel(ctx, -100, 1); err != nil {
		t.Fatalf("SetInsultLevel: %v", err)
	}
	if err := b.settings.SetInsultProbability(ctx, -100, 1); err != nil {
		t.Fatalf("SetInsultProbability: %v", err)
	}

	for i := 0; i < 50; i++ {
		b.handleMessage(groupMessage(2, "petya", "какой-то текст без обращения"))
	}
	if gen.calls != 0 {
		t.Fatalf("level 1 must disable generation, got %d calls", gen.calls)
	}
}

func TestWhenIntentReplies(t *testing.T) {
	b, client, _, _ := newTestBot(t)

	b.handleMessage(groupMessage(1, "vasya", "Быдлик когда уже лето"))
	if got := client.lastText(t); got == "" {
		t.Fatal("expected non-empty answer to 'когда'")
	}
}

func TestHowMuchIntentDeterministic(t *testing.T) {
	b, client, _, _ := newTestBot(t)

	b.handleMessage(groupMessage(1, "vasya", "Быдлик насколько я красив"))
	first := client.lastText(t)
	b.handleMessage(groupMessage(1, "vasya", "Быдлик насколько я красив"))
	second := client.lastText(t)

	if !strings.HasPrefix(first, "На ") || !strings.HasSuffix(first, "%") {
		t.Fatalf("unexpected shape: %q", first)
	}
	if first != second {
		t.Fatalf("same question same day must repeat the answer: %q vs %q", first, second)
	}
}

func TestHowManyIntentDeterministic(t *testing.T) {
	b, client, _, _ := newTestBot(t)

	b.handleMessage(groupMessage(1, "vasya", "Быдлик сколько мне осталось"))
	first := client.lastText(t)
	b.handleMessage(groupMessage(1, "vasya", "Быдлик сколько мне осталось"))
	second := client.lastText(t)

	if first == "" || first != second {
		t.Fatalf("same question same day must repeat the answer: %q vs %q", first, second)
	}
}

func TestSelfTagToggle(t *testing.T) {
	b, client, _, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(groupMessage(2, "petya", "Быдлик не тегай меня"))
	if got := client.lastText(t); !strings.HasPrefix(got, "Готово") {
		t.Fatalf("expected opt-out confirmation, got %q", got)
	}
	user, err := b.store.GetUser(ctx, 2, -100)
	if err != nil || user == nil || user.Tag {
		t.Fatalf("tag must be off: user=%v err=%v", user, err)
	}

	b.handleMessage(groupMessage(2, "petya", "Быдлик не тегай меня"))
	if got := client.lastText(t); got != "Ты уже просил, я тебя не тегаю" {
		t.Fatalf("expected idempotent message, got %q", got)
	}

	b.handleMessage(groupMessage(2, "petya", "Быдлик тегай меня"))
	user, err = b.store.GetUser(ctx, 2, -100)
	if err != nil || user == nil || !user.Tag {
		t.Fatalf("tag must be back on: user=%v err=%v", user, err)
	}
}

func TestGlobalSettingFromPrivateChat(t *testing.T) {
	b, client, _, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(privateMessage(5, "boss", "Быдлик шанс оскорбления 10"))
	if got := client.lastText(t); !strings.Contains(got, "глобальн") {
		t.Fatalf("non-global-admin must be denied, got %q", got)
	}

	if err := b.store.SetGlobalAdmin(ctx, 5, true); err != nil {
		t.Fatalf("SetGlobalAdmin: %v", err)
	}
	b.handleMessage(privateMessage(5, "boss", "Быдлик шанс оскорбления 10"))
	if got := client.lastText(t); !strings.Contains(got, "10.00%") {
		t.Fatalf("expected global update confirmation, got %q", got)
	}

	if got := b.settings.InsultProbability(ctx, -100); got != 0.1 {
		t.Fatalf("global value must apply to chats, got %v", got)
	}
}

func TestGlobalAdminDemotionImmunity(t *testing.T) {
	b, client, _, _ := newTestBot(t)
	ctx := context.Background()

	// SetGlobalAdmin only updates existing identity rows.
	if err := b.store.EnsureUser(ctx, 7, "boss", -100); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := b.store.SetGlobalAdmin(ctx, 7, true); err != nil {
		t.Fatalf("SetGlobalAdmin: %v", err)
	}
	if err := b.admins.PromoteChatAdmin(ctx, 1, -100); err != nil {
		t.Fatalf("PromoteChatAdmin: %v", err)
	}

	b.handleMessage(groupMessage(1, "vasya", "Быдлик убери админа 7"))
	if got := client.lastText(t); got != "Глобального администратора нельзя снять" {
		t.Fatalf("expected immunity message, got %q", got)
	}
}

func TestQuotaStatusCommand(t *testing.T) {
	b, client, _, _ := newTestBot(t)
	ctx := context.Background()

	if err := b.admins.PromoteChatAdmin(ctx, 1, -100); err != nil {
		t.Fatalf("PromoteChatAdmin: %v", err)
	}
	b.handleMessage(groupMessage(1, "vasya", "Быдлик осталось запросов"))
	if got := client.lastText(t); got != "Осталось запросов: 42 из 100" {
		t.Fatalf("unexpected quota reply: %q", got)
	}
}

func TestDescribeNonText(t *testing.T) {
	cases := []struct {
		name string
		msg  *tgbotapi.Message
		want string
	}{
		{"photo", &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{}}}, "[фото]"},
		{"voice", &tgbotapi.Message{Voice: &tgbotapi.Voice{}}, "[голосовое]"},
		{"sticker", &tgbotapi.Message{Sticker: &tgbotapi.Sticker{}}, "[стикер]"},
		// Telegram delivers animations with the document field set too.
		{"animation", &tgbotapi.Message{Animation: &tgbotapi.Animation{}, Document: &tgbotapi.Document{}}, "[гифка]"},
		{"video note", &tgbotapi.Message{VideoNote: &tgbotapi.VideoNote{}}, "[видеосообщение]"},
		{"contact", &tgbotapi.Message{Contact: &tgbotapi.Contact{}}, "[контакт]"},
		{"location", &tgbotapi.Message{Location: &tgbotapi.Location{}}, "[геопозиция]"},
		{"poll", &tgbotapi.Message{Poll: &tgbotapi.Poll{}}, "[опрос]"},
		{"service message", &tgbotapi.Message{NewChatMembers: []tgbotapi.User{{}}}, ""},
	}
	for _, tc := range cases {
		if got := describeNonText(tc.msg); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPickAlternative(t *testing.T) {
	choice, ok := pickAlternative("быдлик пицца или суши или шаурма")
	if !ok {
		t.Fatal("expected a choice")
	}
	switch choice {
	case "пицца", "суши", "шаурма":
	default:
		t.Fatalf("choice must be one of the options, got %q", choice)
	}
}

func TestParseBanDuration(t *testing.T) {
	b, _, _, _ := newTestBot(t)

	until, errText := b.parseBanDuration("10м")
	if errText != "" || until == nil {
		t.Fatalf("10м must parse: until=%v err=%q", until, errText)
	}
	if got := until.Sub(b.now()); got < 9*time.Minute || got > 11*time.Minute {
		t.Fatalf("expected ~10 minutes, got %v", got)
	}

	until, errText = b.parseBanDuration("30")
	if errText != "" || until == nil {
		t.Fatalf("bare number must mean minutes: until=%v err=%q", until, errText)
	}

	until, errText = b.parseBanDuration("10м за спам")
	if errText != "" || until == nil {
		t.Fatalf("trailing words must be ignored: until=%v err=%q", until, errText)
	}
	if got := until.Sub(b.now()); got < 9*time.Minute || got > 11*time.Minute {
		t.Fatalf("expected ~10 minutes, got %v", got)
	}

	until, errText = b.parseBanDuration("2часа")
	if errText != "" || until == nil {
		t.Fatalf("2часа must parse: until=%v err=%q", until, errText)
	}
	if got := until.Sub(b.now()); got < time.Hour || got > 3*time.Hour {
		t.Fatalf("expected ~2 hours, got %v", got)
	}

	until, errText = b.parseBanDuration("")
	if errText != "" || until != nil {
		t.Fatalf("empty payload must mean permanent: until=%v err=%q", until, errText)
	}

	if _, errText = b.parseBanDuration("скоро"); errText == "" {
		t.Fatal("garbage must be rejected")
	}
}
