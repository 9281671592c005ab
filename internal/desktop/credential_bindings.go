package desktop

import (
	"github.com/chatdesk/chatdesk/internal/credentials"
)

// CredentialsPlugin exposes the AWS credential pair to the front-end.
type CredentialsPlugin struct {
	accessor *credentials.Accessor
}

// GetAWSCredentials returns [AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY], each
// "" when unset. It never fails. The fixed-size array keeps the generated
// binding typed as a two-element array, which is also the JSON shape.
func (p *CredentialsPlugin) GetAWSCredentials() [2]string {
	return p.accessor.Get().Array()
}
