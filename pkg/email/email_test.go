package email

import (
	"context"
	"bufio"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopnotify/pkg/logger"
)

type sentMail struct {
	to, subject, body string
}

func TestNotifyIntegrationDisabled(t *testing.T) {
	t.Run("Given two owners When notifying Then each receives the rendered mail", func(t *testing.T) {
		svc := NewService(Config{}, logger.NewNop())
		var sent []sentMail
		svc.send = func(to, subject, body string) error {
			sent = append(sent, sentMail{to, subject, body})
			return nil
		}

		err := svc.NotifyIntegrationDisabled(context.Background(), []string{"a@x.com", "b@x.com"}, "My Store", "auth failed 3 times")
		require.NoError(t, err)
		require.Len(t, sent, 2)
		assert.Equal(t, "a@x.com", sent[0].to)
		assert.Contains(t, sent[0].subject, "My Store")
		assert.Contains(t, sent[1].body, "auth failed 3 times")
	})

	t.Run("Given one failing recipient When notifying Then others are still sent and the failure is reported", func(t *testing.T) {
		svc := NewService(Config{}, logger.NewNop())
		var delivered []string
		svc.send = func(to, subject, body string) error {
			if to == "bad@x.com" {
				return errors.New("mailbox unavailable")
			}
			delivered = append(delivered, to)
			return nil
		}

		err := svc.NotifyIntegrationDisabled(context.Background(), []string{"bad@x.com", "ok@x.com"}, "S", "r")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad@x.com")
		assert.Equal(t, []string{"ok@x.com"}, delivered)
	})
}

// plainSMTPServer 只支持EHLO的明文SMTP服务器，不宣告STARTTLS
func plainSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		conn.Write([]byte("220 localhost ESMTP\r\n"))
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"):
				conn.Write([]byte("250 localhost\r\n"))
			case strings.HasPrefix(cmd, "QUIT"):
				conn.Write([]byte("221 bye\r\n"))
				return
			default:
				conn.Write([]byte("502 unsupported\r\n"))
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestSendSMTP_SubmissionPortRequiresStartTLS(t *testing.T) {
	host, port := plainSMTPServer(t)
	svc := NewService(Config{Host: host, Port: port, From: "noreply@example.com"}, logger.NewNop())

	err := svc.sendSMTP("owner@example.com", "subject", "body")

	assert.ErrorIs(t, err, ErrStartTLSUnsupported)
}
