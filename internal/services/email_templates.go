package services

import (
	"fmt"
	"html"
	"time"
)

// verificationEmail renders the passcode email. serviceName is escaped; code
// is always six digits.
func verificationEmail(serviceName, code string, ttl time.Duration) (subject, htmlBody, textBody string) {
	minutes := int(ttl / time.Minute)
	name := html.EscapeString(serviceName)

	subject = fmt.Sprintf("Your %s sign-in code", serviceName)
	htmlBody = fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Sign-in code</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px; text-align: center;">
				<h1 style="color: #333; margin-bottom: 20px;">%s</h1>
				<p style="color: #666; font-size: 16px; margin-bottom: 20px;">Your sign-in code is:</p>
				<div style="background-color: #6d28d9; color: white; padding: 20px; border-radius: 10px; font-size: 32px; font-weight: bold; letter-spacing: 5px; margin: 20px 0;">
					%s
				</div>
				<p style="color: #999; font-size: 14px; margin-top: 20px;">The code expires in %d minutes. Never share it with anyone.</p>
				<p style="color: #999; font-size: 12px; margin-top: 30px;">If you did not request this code, you can ignore this email.</p>
			</div>
		</body>
		</html>
	`, name, code, minutes)

	textBody = fmt.Sprintf("%s\n\nYour sign-in code is: %s\n\nThe code expires in %d minutes. Never share it with anyone.\n\nIf you did not request this code, you can ignore this email.\n",
		serviceName, code, minutes)
	return subject, htmlBody, textBody
}
