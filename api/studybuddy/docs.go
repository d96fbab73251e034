// Package studybuddy contains the OpenAPI document served at /swagger/.
package studybuddy

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {
			"name": "AussieBroadWAN Team",
			"url": "https://github.com/aussiebroadwan/studybuddy"
		},
		"license": {
			"name": "MIT",
			"url": "https://opensource.org/licenses/MIT"
		},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/api/signup": {
			"post": {
				"description": "Creates an unverified account and emails a 6-digit code valid for 5 minutes.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Accounts"
				],
				"summary": "Create an account",
				"parameters": [
					{
						"description": "request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/authsdk.SignupRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.CodeResponse"
						}
					},
					"400": {
						"description": "Missing fields",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"409": {
						"description": "Email already registered and verified",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/verify-otp": {
			"post": {
				"description": "Marks the account verified when the code matches and has not expired.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Accounts"
				],
				"summary": "Verify an account",
				"parameters": [
					{
						"description": "request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/authsdk.VerifyOTPRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"400": {
						"description": "Unknown account or invalid/expired code",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/resend-otp": {
			"post": {
				"description": "Issues a fresh verification code, replacing any earlier one.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Accounts"
				],
				"summary": "Resend the verification code",
				"parameters": [
					{
						"description": "request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/authsdk.EmailRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.CodeResponse"
						}
					},
					"400": {
						"description": "Missing email or unknown account",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/verify-and-login": {
			"post": {
				"description": "Consumes the verification code and checks the password in one step.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Accounts"
				],
				"summary": "Verify and log in",
				"parameters": [
					{
						"description": "request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/authsdk.VerifyAndLoginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.LoginResponse"
						}
					},
					"400": {
						"description": "Invalid or expired code",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"401": {
						"description": "Wrong password",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/login": {
			"post": {
				"description": "Checks email and password and returns the user plus a session token.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Accounts"
				],
				"summary": "Log in",
				"parameters": [
					{
						"description": "request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/authsdk.LoginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.LoginResponse"
						}
					},
					"400": {
						"description": "Missing fields",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"401": {
						"description": "Invalid credentials",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"403": {
						"description": "Account not verified",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/forgot-password": {
			"post": {
				"description": "Emails a reset code valid for 5 minutes.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Accounts"
				],
				"summary": "Request a password reset",
				"parameters": [
					{
						"description": "request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/authsdk.EmailRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.CodeResponse"
						}
					},
					"400": {
						"description": "Missing email or unknown account",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/reset-password": {
			"post": {
				"description": "Sets a new password when the reset code matches and has not expired.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Accounts"
				],
				"summary": "Reset the password",
				"parameters": [
					{
						"description": "request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/authsdk.ResetPasswordRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"400": {
						"description": "Invalid or expired code",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/ai/generate": {
			"post": {
				"description": "Forwards a provider request using a server-held API key and returns only the response text.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"AI"
				],
				"summary": "Generate text",
				"parameters": [
					{
						"description": "Provider request: model, contents, config",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "text",
						"schema": {
							"$ref": "#/definitions/studyai.ProxyResponse"
						}
					},
					"400": {
						"description": "No server key configured or bad body",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Provider failure",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/me": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Returns the name and email of the account that owns the session token.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Accounts"
				],
				"summary": "Current account",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.MeResponse"
						}
					},
					"401": {
						"description": "Missing, invalid or expired token",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/api/health": {
			"get": {
				"description": "Reports whether the document database is reachable and how many accounts live only in the in-memory fallback.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Health"
				],
				"summary": "Storage Health",
				"responses": {
					"200": {
						"description": "mongoState, mongoConnected, memoryUsers, driver",
						"schema": {
							"$ref": "#/definitions/authsdk.HealthResponse"
						}
					}
				}
			}
		},
		"/livez": {
			"get": {
				"description": "Liveness probe returning status, uptime and version.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Health"
				],
				"summary": "Liveness Endpoint",
				"responses": {
					"200": {
						"description": "status, uptime, version",
						"schema": {
							"$ref": "#/definitions/authsdk.LivenessResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"authsdk.SignupRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"authsdk.LoginRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"authsdk.VerifyOTPRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"otp": {
					"type": "string"
				}
			}
		},
		"authsdk.EmailRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				}
			}
		},
		"authsdk.VerifyAndLoginRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"otp": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"authsdk.ResetPasswordRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"otp": {
					"type": "string"
				},
				"newPassword": {
					"type": "string"
				}
			}
		},
		"authsdk.MessageResponse": {
			"type": "object",
			"properties": {
				"message": {
					"type": "string"
				}
			}
		},
		"authsdk.CodeResponse": {
			"type": "object",
			"properties": {
				"message": {
					"type": "string"
				},
				"emailSent": {
					"type": "boolean"
				}
			}
		},
		"authsdk.UserInfo": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"email": {
					"type": "string"
				}
			}
		},
		"authsdk.LoginResponse": {
			"type": "object",
			"properties": {
				"message": {
					"type": "string"
				},
				"user": {
					"$ref": "#/definitions/authsdk.UserInfo"
				},
				"token": {
					"type": "string"
				},
				"expiresAt": {
					"type": "string"
				}
			}
		},
		"authsdk.MeResponse": {
			"type": "object",
			"properties": {
				"user": {
					"$ref": "#/definitions/authsdk.UserInfo"
				}
			}
		},
		"authsdk.HealthResponse": {
			"type": "object",
			"properties": {
				"mongoState": {
					"type": "string"
				},
				"mongoConnected": {
					"type": "boolean"
				},
				"memoryUsers": {
					"type": "integer"
				},
				"driver": {
					"type": "string"
				}
			}
		},
		"authsdk.LivenessResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"uptime": {
					"type": "string"
				},
				"version": {
					"type": "string"
				}
			}
		},
		"studyai.ProxyResponse": {
			"type": "object",
			"properties": {
				"text": {
					"type": "string"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Session token from /api/login. Format: \"Bearer {token}\".",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:		  "0.1.0",
	Host:			 "localhost:8080",
	BasePath:		 "/",
	Schemes:		  []string{"http", "https"},
	Title:			"StudyBuddy API",
	Description:	  "Account lifecycle with emailed one-time codes, plus a generation proxy for clients without their own AI key.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:		"{{",
	RightDelim:	   "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
