package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "GPP Portal API",
        "description": "Administrative backend for the Government Polytechnic Palanpur portal",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and role switching"},
        {"name": "Users", "description": "Account administration"},
        {"name": "Roles", "description": "RBAC role catalogue"},
        {"name": "Departments", "description": "Academic departments"},
        {"name": "Faculty", "description": "Staff profiles"},
        {"name": "Students", "description": "Student records"},
        {"name": "Projects", "description": "Project fair registrations and evaluation"},
        {"name": "Teams", "description": "Project teams"},
        {"name": "Events", "description": "Project fair events"},
        {"name": "Results", "description": "GTU exam results"},
        {"name": "Exports", "description": "Asynchronous CSV/PDF exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Token pair and user info"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/signup": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account with the student role",
                "responses": {
                    "201": {"description": "Account created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/switch-role": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Switch active role",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "New access token under the selected role"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "User info"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Paginated users"}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "User created"}
                }
            }
        },
        "/users/import": {
            "post": {
                "tags": ["Users"],
                "summary": "Bulk import users from CSV",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Import report"}
                }
            }
        },
        "/admin/roles": {
            "get": {
                "tags": ["Roles"],
                "summary": "List roles",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Role catalogue"}
                }
            },
            "post": {
                "tags": ["Roles"],
                "summary": "Create role",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Role created"}
                }
            }
        },
        "/departments": {
            "get": {
                "tags": ["Departments"],
                "summary": "List departments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Paginated departments"}
                }
            },
            "post": {
                "tags": ["Departments"],
                "summary": "Create department",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Department created"}
                }
            }
        },
        "/departments/stats": {
            "get": {
                "tags": ["Departments"],
                "summary": "Headcount statistics per department",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Statistics"}
                }
            }
        },
        "/faculty": {
            "get": {
                "tags": ["Faculty"],
                "summary": "List faculty",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Paginated faculty"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Paginated students"}
                }
            }
        },
        "/students/sync": {
            "post": {
                "tags": ["Students"],
                "summary": "Link students to user accounts",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Sync report"}
                }
            }
        },
        "/projects": {
            "get": {
                "tags": ["Projects"],
                "summary": "List projects",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Paginated projects"}
                }
            },
            "post": {
                "tags": ["Projects"],
                "summary": "Register project",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Project registered"}
                }
            }
        },
        "/projects/winners": {
            "get": {
                "tags": ["Projects"],
                "summary": "Event winners",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Ranked winners"},
                    "403": {"description": "Results not published"}
                }
            }
        },
        "/teams": {
            "get": {
                "tags": ["Teams"],
                "summary": "List teams",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Paginated teams"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Events"}
                }
            }
        },
        "/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List results",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Paginated results"}
                }
            }
        },
        "/results/import": {
            "post": {
                "tags": ["Results"],
                "summary": "Import GTU result CSV",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Import report with upload batch"}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Pending job"}
                }
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download export by signed token",
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
