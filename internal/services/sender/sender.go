package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	smtplib "github.com/magabrotheeeer/painscope/internal/lib/smtp"
	"github.com/magabrotheeeer/painscope/internal/models"
)

type SenderService struct {
	transport smtplib.TransportInterface
	siteURL   string
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtplib.TransportInterface, siteURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		siteURL:   siteURL,
		log:       log,
	}
}

// SendInfoReportReady отправляет письмо о готовом отчёте исследования.
func (s *SenderService) SendInfoReportReady(body []byte) error {
	var message models.ReportNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Отчёт PainScope готов"
	bodyText := fmt.Sprintf(`Здравствуйте, %s!

Исследование рынка завершено. Найдено болевых точек: %d, средний балл боли: %.1f.
Самая острая проблема: %s.

Полный отчёт доступен по адресу: %s/reports/%s`,
		message.Username, message.PainCount, message.AvgScore,
		message.TopPain, s.siteURL, message.ReportID)

	return s.sendEmail(to, subject, bodyText)
}

// SendVerifyEmailCode отправляет код подтверждения почты после регистрации.
func (s *SenderService) SendVerifyEmailCode(body []byte) error {
	message, err := s.decodeAuthCode(body)
	if err != nil {
		return err
	}

	subject := "Подтверждение почты PainScope"
	bodyText := fmt.Sprintf(`Здравствуйте, %s!

Ваш код подтверждения почты: %s

Код действует 15 минут.`, message.Username, message.Code)

	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

// SendLoginCode отправляет одноразовый код входа.
func (s *SenderService) SendLoginCode(body []byte) error {
	message, err := s.decodeAuthCode(body)
	if err != nil {
		return err
	}

	subject := "Код входа PainScope"
	bodyText := fmt.Sprintf(`Здравствуйте, %s!

Ваш одноразовый код входа: %s

Код действует 5 минут. Если вы не запрашивали вход, проигнорируйте это письмо.`,
		message.Username, message.Code)

	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

// SendPasswordReset отправляет ссылку для сброса пароля.
func (s *SenderService) SendPasswordReset(body []byte) error {
	message, err := s.decodeAuthCode(body)
	if err != nil {
		return err
	}

	subject := "Сброс пароля PainScope"
	bodyText := fmt.Sprintf(`Здравствуйте, %s!

Для сброса пароля перейдите по ссылке: %s/reset-password?token=%s

Ссылка действует 30 минут. Если вы не запрашивали сброс, проигнорируйте это письмо.`,
		message.Username, s.siteURL, message.Code)

	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

func (s *SenderService) decodeAuthCode(body []byte) (models.AuthCodeNotification, error) {
	var message models.AuthCodeNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return message, fmt.Errorf("error unmarshalling message: %w", err)
	}
	return message, nil
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", "error", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", "error", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("Failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
