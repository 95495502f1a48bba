package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"telegram_rps/internal/coord"
	"telegram_rps/internal/domain"
	"telegram_rps/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Router is the action entry point the bot forwards callback queries to.
type Router interface {
	Do(ctx context.Context, ev domain.ActionEvent) error
}

// Bot is the Telegram transport: it renders the interactive game message,
// decodes callback queries into action events and acknowledges them.
type Bot struct {
	api    *tgbotapi.BotAPI
	router Router
	stopCh chan struct{}
	log    *slog.Logger
}

// New authorizes against the Telegram API. Failure here is fatal at
// startup by design.
func New(token string, router Router) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "bot")
	log.Info("bot authorized", "username", api.Self.UserName)

	return &Bot{
		api:    api,
		router: router,
		stopCh: make(chan struct{}),
		log:    log,
	}, nil
}

// Start runs the update loop until Stop is called.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(update.CallbackQuery)
			}
		}
	}
}

// Stop signals the update loop to exit.
func (b *Bot) Stop() {
	close(b.stopCh)
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	ev, err := decodeCallback(cq.Data)
	if err != nil {
		// fail closed on anything outside the vocabulary
		b.log.Warn("dropping unrecognized callback", "data", cq.Data, "from", cq.From.ID)
		b.answer(cq.ID, "")
		return
	}

	ev.ActorID = cq.From.ID
	ev.ActorName = displayName(cq.From)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b.answer(cq.ID, noticeFor(b.router.Do(ctx, ev)))
}

// noticeFor maps router verdicts to the short notice shown to the tapping
// user. Acceptance shows nothing; the edited game message carries the state.
func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, coord.ErrSessionNotActive):
		return "This game is no longer active"
	case errors.Is(err, coord.ErrAlreadyChosen):
		return "You already made your choice"
	case errors.Is(err, coord.ErrNotAllowed):
		return "That button is not for you"
	case errors.Is(err, coord.ErrRateLimited):
		return "Slow down"
	default:
		return "Something went wrong, try again"
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return "player"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return u.FirstName
}

// --- coord.Transport ---

// ShowOffer posts the open offer with accept / play-bot / cancel buttons.
func (b *Bot) ShowOffer(ctx context.Context, s *domain.Session) (domain.MessageRef, error) {
	text := fmt.Sprintf("%s wants to play rock-paper-scissors!\nAnyone can accept.", s.State.InitiatorName)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Accept", encodeCallback(tagAcceptOffer, s.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Play vs bot", encodeCallback(tagAcceptBot, s.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Cancel", encodeCallback(tagCancel, s.ID)),
		),
	)

	return b.send(s.ChatID, text, &keyboard)
}

// ShowDirectChallenge posts the challenge addressed to the fixed opponent.
func (b *Bot) ShowDirectChallenge(ctx context.Context, s *domain.Session) (domain.MessageRef, error) {
	opponent := s.State.OpponentName
	if opponent == "" {
		opponent = "opponent"
	}
	text := fmt.Sprintf("%s challenges %s to rock-paper-scissors!", s.State.InitiatorName, opponent)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Accept", encodeCallback(tagAcceptDirect, s.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Decline", encodeCallback(tagDeclineDirect, s.ID)),
		),
	)

	return b.send(s.ChatID, text, &keyboard)
}

// ShowChoicePrompt edits the game message into the choice selector.
func (b *Bot) ShowChoicePrompt(ctx context.Context, s *domain.Session) error {
	var text string
	tag := tagPickPvP
	if s.State.Mode == domain.ModePvB {
		tag = tagPickBot
		text = fmt.Sprintf("%s vs bot. Make your choice!", s.State.InitiatorName)
	} else {
		text = fmt.Sprintf("%s vs %s. Both players, make your choice!", s.State.InitiatorName, s.State.OpponentName)
	}

	keyboard := choiceKeyboard(tag, s.ID)
	return b.edit(s, text, &keyboard)
}

// ShowChoiceLocked edits the message after a first pvp lock-in without
// revealing the choice.
func (b *Bot) ShowChoiceLocked(ctx context.Context, s *domain.Session, actorName string) error {
	text := fmt.Sprintf("%s locked in a choice. Waiting for the other player...", actorName)
	keyboard := choiceKeyboard(tagPickPvP, s.ID)
	return b.edit(s, text, &keyboard)
}

// ShowResult edits the game message into the terminal announcement and
// drops the keyboard.
func (b *Bot) ShowResult(ctx context.Context, s *domain.Session, description string) error {
	return b.edit(s, resultText(s, description), nil)
}

func resultText(s *domain.Session, description string) string {
	st := s.State
	reveal := ""
	if st.InitiatorChoice != nil && st.OpponentChoice != nil {
		reveal = fmt.Sprintf("\n%s: %s, %s: %s", st.InitiatorName, *st.InitiatorChoice, opponentLabel(s), *st.OpponentChoice)
	}

	var headline string
	switch s.Status {
	case domain.StatusCompletedP1Win:
		headline = fmt.Sprintf("%s wins!", st.InitiatorName)
	case domain.StatusCompletedP2Win:
		headline = fmt.Sprintf("%s wins!", st.OpponentName)
	case domain.StatusCompletedBotWin:
		headline = "The bot wins!"
	case domain.StatusCompletedPush:
		headline = "Push - nobody wins."
	case domain.StatusCompletedCancelled:
		headline = "Game cancelled."
	case domain.StatusCompletedTimeout:
		headline = "Game expired."
	default:
		headline = "Game over."
	}

	return fmt.Sprintf("%s\n%s%s", headline, description, reveal)
}

func opponentLabel(s *domain.Session) string {
	if s.State.Mode == domain.ModePvB {
		return "bot"
	}
	if s.State.OpponentName != "" {
		return s.State.OpponentName
	}
	return "opponent"
}

func choiceKeyboard(tag string, sessionID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🪨 Rock", encodeChoiceCallback(tag, sessionID, domain.ChoiceRock)),
			tgbotapi.NewInlineKeyboardButtonData("📄 Paper", encodeChoiceCallback(tag, sessionID, domain.ChoicePaper)),
			tgbotapi.NewInlineKeyboardButtonData("✂️ Scissors", encodeChoiceCallback(tag, sessionID, domain.ChoiceScissors)),
		),
	)
}

func (b *Bot) send(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (domain.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (b *Bot) edit(s *domain.Session, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	ref := s.State.Message
	if ref.MessageID == 0 {
		// first send failed; fall back to a fresh message
		_, err := b.send(s.ChatID, text, keyboard)
		return err
	}

	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if keyboard != nil {
		edit.ReplyMarkup = keyboard
	}

	_, err := b.api.Send(edit)
	return err
}
