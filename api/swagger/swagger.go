package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Player Orders Core API",
        "description": "Economic core for the player-to-player order marketplace: drafts, pricing, escrowed publication, reviews, penalties and reputation.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Drafts", "description": "Order drafts, validation and pricing"},
        {"name": "Orders", "description": "Escrowed publication lifecycle"},
        {"name": "Reviews", "description": "Post-completion reviews and moderation"},
        {"name": "Penalties", "description": "Administrative score penalties"},
        {"name": "Ratings", "description": "Per-role reputation aggregates"},
        {"name": "Recalculation", "description": "Background rating recalculation jobs"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/orders/drafts": {
            "get": {
                "tags": ["Drafts"],
                "summary": "List own drafts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Drafts"],
                "summary": "Create draft",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDraftRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/drafts/{id}": {
            "get": {
                "tags": ["Drafts"],
                "summary": "Get draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Drafts"],
                "summary": "Update draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDraftRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Drafts"],
                "summary": "Discard draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/orders/drafts/{id}/validate": {
            "post": {
                "tags": ["Drafts"],
                "summary": "Validate draft and attach budget",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/estimate": {
            "post": {
                "tags": ["Drafts"],
                "summary": "Standalone budget estimate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EstimateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/drafts/{id}/publish": {
            "post": {
                "tags": ["Orders"],
                "summary": "Publish validated draft with escrow lock",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PublishRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "tags": ["Orders"],
                "summary": "Get published order",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/{id}/accept": {
            "post": {
                "tags": ["Orders"],
                "summary": "Claim an open order as executor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AcceptRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/{id}/confirm": {
            "post": {
                "tags": ["Orders"],
                "summary": "Confirm completion for one party",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConfirmRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/{id}/cancel": {
            "post": {
                "tags": ["Orders"],
                "summary": "Cancel order and refund escrow",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CancelRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/{id}/complete": {
            "post": {
                "tags": ["Orders"],
                "summary": "Force-complete an order per timeout policy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/orders/{id}/reviews": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List published reviews for an order",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reviews"],
                "summary": "Submit a review on a completed order",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReviewRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reviews/{id}/moderate": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Apply a moderation verdict",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ModerateReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/penalties": {
            "post": {
                "tags": ["Penalties"],
                "summary": "Apply a penalty",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyPenaltyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/penalties/{id}": {
            "get": {
                "tags": ["Penalties"],
                "summary": "Get penalty",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/penalties/{id}/reverse": {
            "post": {
                "tags": ["Penalties"],
                "summary": "Reverse a penalty and queue recalculation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReversePenaltyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/players/{playerId}/penalties": {
            "get": {
                "tags": ["Penalties"],
                "summary": "List penalties for a player role",
                "parameters": [
                    {"name": "playerId", "in": "path", "required": true, "type": "string"},
                    {"name": "role", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/players/{playerId}/rating": {
            "get": {
                "tags": ["Ratings"],
                "summary": "Get reputation aggregate",
                "parameters": [
                    {"name": "playerId", "in": "path", "required": true, "type": "string"},
                    {"name": "role", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/players/{playerId}/rating/history": {
            "get": {
                "tags": ["Ratings"],
                "summary": "Recent score change events",
                "parameters": [
                    {"name": "playerId", "in": "path", "required": true, "type": "string"},
                    {"name": "role", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ratings/recalculate": {
            "get": {
                "tags": ["Recalculation"],
                "summary": "List recent jobs",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Recalculation"],
                "summary": "Queue a recalculation",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecalcRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ratings/recalculate/{id}": {
            "get": {
                "tags": ["Recalculation"],
                "summary": "Job progress and outcome",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Recalculation"],
                "summary": "Cancel a queued or running job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/ratings/recalculate/download/{token}": {
            "get": {
                "tags": ["Recalculation"],
                "summary": "Download a dry-run drift report",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV attachment"}
                }
            }
        }
    },
    "definitions": {
        "CheckpointPayload": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "due": {"type": "string", "format": "date-time"}
            },
            "required": ["title", "due"]
        },
        "BriefPayload": {
            "type": "object",
            "properties": {
                "goal": {"type": "string"},
                "objectives": {"type": "array", "items": {"type": "string"}},
                "checkpoints": {"type": "array", "items": {"$ref": "#/definitions/CheckpointPayload"}},
                "riskLevel": {"type": "string", "enum": ["low", "medium", "high", "extreme"]},
                "teamSize": {"type": "integer"},
                "privacy": {"type": "string"},
                "templateCode": {"type": "string"},
                "deadline": {"type": "string", "format": "date-time"}
            },
            "required": ["goal", "objectives", "riskLevel", "teamSize", "privacy", "templateCode"]
        },
        "CreateDraftRequest": {
            "type": "object",
            "properties": {
                "brief": {"$ref": "#/definitions/BriefPayload"}
            },
            "required": ["brief"]
        },
        "UpdateDraftRequest": {
            "type": "object",
            "properties": {
                "goal": {"type": "string"},
                "objectives": {"type": "array", "items": {"type": "string"}},
                "checkpoints": {"type": "array", "items": {"$ref": "#/definitions/CheckpointPayload"}},
                "riskLevel": {"type": "string"},
                "teamSize": {"type": "integer"},
                "privacy": {"type": "string"},
                "templateCode": {"type": "string"},
                "deadline": {"type": "string", "format": "date-time"}
            }
        },
        "EstimateRequest": {
            "type": "object",
            "properties": {
                "brief": {"$ref": "#/definitions/BriefPayload"}
            },
            "required": ["brief"]
        },
        "PublishRequest": {
            "type": "object",
            "properties": {
                "visibility": {"type": "string", "enum": ["public", "friends", "invite_only"]},
                "guaranteeTier": {"type": "string", "enum": ["none", "basic", "standard", "premium"]},
                "invited": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["visibility"]
        },
        "AcceptRequest": {
            "type": "object",
            "properties": {
                "executorId": {"type": "string"}
            },
            "required": ["executorId"]
        },
        "ConfirmRequest": {
            "type": "object",
            "properties": {
                "partyId": {"type": "string"}
            },
            "required": ["partyId"]
        },
        "CancelRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "RatingsPayload": {
            "type": "object",
            "properties": {
                "overall": {"type": "integer", "minimum": 1, "maximum": 5},
                "communication": {"type": "integer", "minimum": 1, "maximum": 5},
                "professionalism": {"type": "integer", "minimum": 1, "maximum": 5},
                "timeliness": {"type": "integer", "minimum": 1, "maximum": 5}
            },
            "required": ["overall", "communication", "professionalism", "timeliness"]
        },
        "CreateReviewRequest": {
            "type": "object",
            "properties": {
                "reviewerId": {"type": "string"},
                "targetId": {"type": "string"},
                "ratings": {"$ref": "#/definitions/RatingsPayload"},
                "text": {"type": "string"},
                "flags": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["reviewerId", "targetId", "ratings"]
        },
        "ModerateReviewRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["published", "hidden", "deleted"]}
            },
            "required": ["status"]
        },
        "ApplyPenaltyRequest": {
            "type": "object",
            "properties": {
                "playerId": {"type": "string"},
                "role": {"type": "string", "enum": ["client", "executor"]},
                "type": {"type": "string"},
                "delta": {"type": "number"},
                "reason": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"},
                "linkedOrderId": {"type": "string"}
            },
            "required": ["playerId", "role", "type", "delta", "reason"]
        },
        "ReversePenaltyRequest": {
            "type": "object",
            "properties": {
                "note": {"type": "string"}
            },
            "required": ["note"]
        },
        "RecalcRequest": {
            "type": "object",
            "properties": {
                "playerId": {"type": "string"},
                "role": {"type": "string", "enum": ["client", "executor"]},
                "dryRun": {"type": "boolean"}
            }
        },
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
