package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatdesk/chatdesk/internal/credentials"
)

// newCredentialsCmd creates the 'credentials' command.
func newCredentialsCmd() *cobra.Command {
	var showSecret, asJSON, strict bool

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Show the AWS credentials the app would use",
		Long: `Print AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY as the desktop app
sees them. Unset variables are shown as empty.

The secret is masked unless --show-secret is given. With --strict the
command fails when either variable is unset.

Examples:
  chatdesk credentials
  chatdesk credentials --json
  chatdesk credentials --strict && echo ready`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var pair credentials.Pair
			if strict {
				var err error
				if pair, err = credentials.NewAccessor().Require(); err != nil {
					return err
				}
			} else {
				pair.AccessKey, pair.SecretKey = credentials.GetAWSCredentials()
			}

			secret := pair.SecretKey
			if !showSecret {
				secret = pair.MaskedSecret()
			}
			out := cmd.OutOrStdout()

			if asJSON {
				data, err := json.Marshal(credentials.Pair{AccessKey: pair.AccessKey, SecretKey: secret})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "%-22s %s\n", credentials.EnvAccessKeyID+":", displayValue(pair.AccessKey))
			fmt.Fprintf(out, "%-22s %s\n", credentials.EnvSecretAccessKey+":", displayValue(secret))
			if !pair.IsComplete() {
				fmt.Fprintln(out, "\nBedrock requests will fail until both variables are set or")
				fmt.Fprintln(out, "aws.credentials is filled in the user config.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSecret, "show-secret", false, "Print the secret key unmasked")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the pair as a JSON array")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when either variable is unset")

	return cmd
}

func displayValue(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
