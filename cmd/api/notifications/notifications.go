package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bookshelf-service/cmd/api/book"
)

const bookCreatedTopic = "_New_book_published"

type Ntfy struct {
	baseURL string
	enabled bool
	client  *http.Client
}

func NewNtfy(enableNotifications bool, notificationsBaseURL string, client *http.Client) *Ntfy {
	return &Ntfy{
		baseURL: notificationsBaseURL,
		enabled: enableNotifications,
		client:  client,
	}
}

/* Publishes a message about a newly published book to the ntfy topic. */
func (ntf *Ntfy) BookCreated(ctx context.Context, b book.Book) error {
	if !ntf.enabled {
		return nil
	}

	message := fmt.Sprintf("New book published: Title: %s Category: %s Price: %.2f", b.Name, b.Category, b.Price)
	topic := ntf.baseURL + bookCreatedTopic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("error delivering message (%s) to topic (%s): %w", message, topic, err)
	}

	resp, err := ntf.client.Do(req)
	if err != nil {
		return fmt.Errorf("error delivering message (%s) to topic (%s): %w", message, topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return book.NewErrNotificationFailed(resp.StatusCode)
	}
	return nil
}
