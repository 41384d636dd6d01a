package sessiond

import "context"

// SendMessage runs one exchange in an active session: the estimated token
// cost is reserved up front, the model is called with the transcript as
// context, and the reservation is settled with the reported usage. Both turns
// are appended to the transcript.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (SendResult, error) {
	res, err := c.chat.Send(ctx, sessionID, message)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{
		Reply:   res.Reply,
		Session: sessionFromSnapshot(res.Snapshot),
	}, nil
}

// Transcript returns the conversation history of a session, oldest first.
func (c *Client) Transcript(ctx context.Context, sessionID string) ([]Turn, error) {
	turns, err := c.chat.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = turnFromDomain(t)
	}
	return out, nil
}
