package service

import "fmt"

func confirmationEmailBody(name, confirmURL string) string {
	return fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your account has been created. Click the link below to confirm your email address and activate the account:\n\n"+
			"%s\n\n"+
			"The link expires shortly after it was issued. If you did not request this account, ignore this message.\n",
		name, confirmURL)
}

func userWelcomeEmailBody(fullName, username, loginURL string) string {
	return fmt.Sprintf(
		"Hello %s,\n\n"+
			"An account has been created for you by your administrator.\n\n"+
			"Username: %s\n"+
			"Log in here: %s\n\n"+
			"You will be asked to change your password after the first login.\n",
		fullName, username, loginURL)
}

func passwordResetEmailBody(name, resetURL string) string {
	return fmt.Sprintf(
		"Hello %s,\n\n"+
			"A password reset was requested for your account. Follow the link below to choose a new password:\n\n"+
			"%s\n\n"+
			"If you did not request a reset, ignore this message and your password stays unchanged.\n",
		name, resetURL)
}
