// Package archive serializes a ticket channel's message history into a
// downloadable bundle posted to the moderation log channel.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"hom-bot/templates"
)

const (
	fetchPageSize = 100

	// LogLineSection is the template rendered once per archived message.
	LogLineSection = "logmessage"
)

// Messenger is the slice of the discordgo session the exporter needs.
type Messenger interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Result summarizes one export.
type Result struct {
	Messages    int
	Attachments int
	Transcript  string
}

// Exporter walks a channel's history and uploads the transcript (and an
// attachment bundle, if any) to the mod log channel. History is fully
// buffered in memory; this is bounded by the platform's fetch limits,
// not designed for unbounded channels.
type Exporter struct {
	messenger  Messenger
	store      *templates.Store
	logChannel string
	httpClient *http.Client
	now        func() time.Time
}

func NewExporter(messenger Messenger, store *templates.Store, logChannel string) *Exporter {
	return &Exporter{
		messenger:  messenger,
		store:      store,
		logChannel: logChannel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// Export dumps the channel's messages oldest-to-newest into one text
// bundle, collects all attachments into a zip if any exist, and sends
// both to the mod log channel under the given summary line.
func (e *Exporter) Export(channelID, archiverName, summary string) (*Result, error) {
	messages, err := e.fetchHistory(channelID)
	if err != nil {
		return nil, fmt.Errorf("archive: fetch history: %w", err)
	}

	var transcript bytes.Buffer
	var attachments []*discordgo.MessageAttachment
	for _, m := range messages {
		line, err := e.store.Render(LogLineSection, map[string]string{
			"author":    fmt.Sprintf("%s (%s)", m.Author.Username, m.Author.ID),
			"timestamp": m.Timestamp.UTC().Format("2006-01-02 03:04 PM"),
			"content":   messageContent(m),
		})
		if err != nil {
			return nil, err
		}
		transcript.WriteString(line)
		transcript.WriteString("\n")
		attachments = append(attachments, m.Attachments...)
	}

	base := e.bundleName(archiverName)
	files := []*discordgo.File{{
		Name:        base + ".txt",
		ContentType: "text/plain",
		Reader:      bytes.NewReader(transcript.Bytes()),
	}}

	bundled := 0
	if len(attachments) > 0 {
		data, n := e.zipAttachments(attachments)
		bundled = n
		if n > 0 {
			files = append(files, &discordgo.File{
				Name:        base + ".zip",
				ContentType: "application/zip",
				Reader:      bytes.NewReader(data),
			})
		}
	}

	_, err = e.messenger.ChannelMessageSendComplex(e.logChannel, &discordgo.MessageSend{
		Content: summary,
		Files:   files,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: upload bundle: %w", err)
	}

	return &Result{
		Messages:    len(messages),
		Attachments: bundled,
		Transcript:  base + ".txt",
	}, nil
}

// fetchHistory pages backwards from the newest message, then reverses
// so the transcript reads oldest-to-newest.
func (e *Exporter) fetchHistory(channelID string) ([]*discordgo.Message, error) {
	var all []*discordgo.Message
	beforeID := ""
	for {
		page, err := e.messenger.ChannelMessages(channelID, fetchPageSize, beforeID, "", "")
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		beforeID = page[len(page)-1].ID
		if len(page) < fetchPageSize {
			break
		}
	}

	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

func (e *Exporter) zipAttachments(attachments []*discordgo.MessageAttachment) ([]byte, int) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	added := 0
	for _, a := range attachments {
		body, err := e.download(a.URL)
		if err != nil {
			slog.Warn("Skipping unfetchable attachment", "url", a.URL, "error", err)
			continue
		}
		w, err := zw.Create(a.ID + "-" + a.Filename)
		if err == nil {
			_, err = w.Write(body)
		}
		if err != nil {
			slog.Warn("Failed to bundle attachment", "name", a.Filename, "error", err)
			continue
		}
		added++
	}

	if err := zw.Close(); err != nil {
		slog.Error("Failed to finalize attachment bundle", "error", err)
		return nil, 0
	}
	return buf.Bytes(), added
}

func (e *Exporter) download(url string) ([]byte, error) {
	resp, err := e.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (e *Exporter) bundleName(archiverName string) string {
	ts := e.now().UTC().Format("2006-01-02T15-04-05")
	return strings.ReplaceAll(archiverName, " ", "-") + "-" + ts
}

func messageContent(m *discordgo.Message) string {
	var b strings.Builder
	b.WriteString(m.Content)
	b.WriteString("\n")

	if len(m.Embeds) > 0 {
		b.WriteString("Embeds:\n")
		for _, em := range m.Embeds {
			fmt.Fprintf(&b, "\nEmbed title: %s\nEmbed description:\n%s", em.Title, em.Description)
		}
	}
	for _, a := range m.Attachments {
		fmt.Fprintf(&b, "\nAttachment: %s", a.Filename)
	}
	return b.String()
}
