// Package docs регистрирует OpenAPI-описание для /docs.
// Пересобирается командой: swag init -g cmd/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/participants/register": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["participants"],
                "summary": "Регистрация участника Devcon '26",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.RegisterInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Participant"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/handlers.errorBody"}},
                    "404": {"description": "Команда не найдена", "schema": {"$ref": "#/definitions/handlers.errorBody"}},
                    "409": {"description": "Команда заполнена", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/participants/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["participants"],
                "summary": "Профиль текущего участника",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Participant"}},
                    "403": {"description": "Нет профиля участника", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/participants/payment/online": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["participants"],
                "summary": "Загрузить чек онлайн-оплаты",
                "parameters": [
                    {"type": "string", "name": "transaction_id", "in": "formData", "required": true},
                    {"type": "file", "name": "receipt", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "message, payment_id", "schema": {"$ref": "#/definitions/services.VerificationResult"}},
                    "400": {"description": "Недопустимый файл", "schema": {"$ref": "#/definitions/handlers.errorBody"}},
                    "409": {"description": "Платёж уже обработан", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/participants/payment/cash": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["participants"],
                "summary": "Оплата наличными на стойке",
                "responses": {
                    "200": {"description": "message, payment_id", "schema": {"$ref": "#/definitions/services.VerificationResult"}},
                    "409": {"description": "Платёж уже обработан", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/ambassador/search": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["ambassador"],
                "summary": "Поиск участника на стойке регистрации",
                "parameters": [
                    {"type": "string", "name": "email", "in": "query"},
                    {"type": "string", "name": "student_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ParticipantSearchResult"}}},
                    "400": {"description": "Не передан ни email, ни student_id", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/ambassador/verify-cash": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ambassador"],
                "summary": "Подтвердить оплату наличными",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"participant_id": {"type": "integer"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.VerificationResult"}},
                    "404": {"description": "Платёж не найден", "schema": {"$ref": "#/definitions/handlers.errorBody"}},
                    "409": {"description": "Платёж уже обработан", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/admin/dashboard": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Сводка для администратора",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DashboardStats"}}
                }
            }
        },
        "/admin/verify-payment/{id}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Одобрить или отклонить онлайн-платёж",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "default": true, "name": "approve", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.VerificationResult"}},
                    "404": {"description": "Платёж не найден", "schema": {"$ref": "#/definitions/handlers.errorBody"}},
                    "409": {"description": "Платёж уже обработан", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/admin/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["admin"],
                "summary": "Выгрузка регистраций",
                "parameters": [
                    {"type": "string", "default": "csv", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Неизвестный формат", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/admin/payments": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Очередь платежей",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 50, "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Payment"}}}
                }
            }
        },
        "/admin/payments/{id}/receipt": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["admin"],
                "summary": "Скачать чек платежа",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "307": {"description": "Редирект на публичный URL хранилища"},
                    "404": {"description": "Чек не найден", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/admin/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Список пользователей",
                "parameters": [
                    {"type": "string", "name": "role", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.UserListResponse"}}
                }
            }
        },
        "/admin/users/{id}/role": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Сменить роль пользователя",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"role": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "403": {"description": "Нельзя понизить самого себя", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/admin/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Живая лента событий для администраторов",
                "parameters": [
                    {"type": "string", "name": "access_token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"}
                }
            }
        }
    },
    "definitions": {
        "handlers.errorBody": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "services.RegisterInput": {
            "type": "object",
            "properties": {
                "track": {"type": "string", "enum": ["web", "mobile", "ai_ml", "cybersecurity", "cloud_devops", "data_science", "ui_ux"]},
                "create_new_team": {"type": "boolean"},
                "team_name": {"type": "string"},
                "team_code": {"type": "string"}
            }
        },
        "services.VerificationResult": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "payment_id": {"type": "integer"}}
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "university": {"type": "string"},
                "student_id": {"type": "string"},
                "role": {"type": "string", "enum": ["participant", "ambassador", "admin"]},
                "created_at": {"type": "string"}
            }
        },
        "models.UserListResponse": {
            "type": "object",
            "properties": {
                "users": {"type": "array", "items": {"$ref": "#/definitions/models.User"}},
                "total_count": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "models.Team": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "track": {"type": "string"},
                "leader_participant_id": {"type": "integer"},
                "join_code": {"type": "string"},
                "member_count": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "models.Payment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "participant_id": {"type": "integer"},
                "team_id": {"type": "integer"},
                "amount": {"type": "integer"},
                "method": {"type": "string", "enum": ["online", "cash"]},
                "status": {"type": "string", "enum": ["pending", "verified", "rejected"]},
                "transaction_id": {"type": "string"},
                "verified_by": {"type": "integer"},
                "verified_at": {"type": "string"},
                "created_at": {"type": "string"},
                "receipt_url": {"type": "string"}
            }
        },
        "models.Participant": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "track": {"type": "string"},
                "team_id": {"type": "integer"},
                "is_team_lead": {"type": "boolean"},
                "created_at": {"type": "string"},
                "user": {"$ref": "#/definitions/models.User"},
                "team": {"$ref": "#/definitions/models.Team"},
                "payment": {"$ref": "#/definitions/models.Payment"}
            }
        },
        "models.ParticipantSearchResult": {
            "type": "object",
            "properties": {
                "participant_id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "university": {"type": "string"},
                "student_id": {"type": "string"},
                "track": {"type": "string"},
                "team_name": {"type": "string"},
                "payment_id": {"type": "integer"},
                "payment_status": {"type": "string"},
                "payment_method": {"type": "string"}
            }
        },
        "models.DashboardStats": {
            "type": "object",
            "properties": {
                "total_participants": {"type": "integer"},
                "payments_summary": {
                    "type": "object",
                    "properties": {
                        "total": {"type": "integer"},
                        "pending": {"type": "integer"},
                        "verified": {"type": "integer"},
                        "rejected": {"type": "integer"},
                        "verified_amount": {"type": "integer"}
                    }
                },
                "track_distribution": {"type": "object", "additionalProperties": {"type": "integer"}},
                "university_distribution": {"type": "object", "additionalProperties": {"type": "integer"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Devcon '26 Registration API",
	Description:      "Регистрация участников, команды, платежи и админка Devcon '26.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
