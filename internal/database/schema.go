package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    hashed_id CHAR(64) NOT NULL,
    provider VARCHAR(32) NOT NULL,
    provider_payment_id VARCHAR(64) NOT NULL,
    order_id VARCHAR(64),
    package_type VARCHAR(32) NOT NULL,
    method VARCHAR(16) NOT NULL,
    status VARCHAR(16) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uniq_provider_payment (provider, provider_payment_id),
    KEY idx_payments_hashed_id (hashed_id)
)`,
	`CREATE TABLE IF NOT EXISTS generation_logs (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    hashed_id CHAR(64) NOT NULL,
    package_type VARCHAR(32) NOT NULL,
    remaining_credits INT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    KEY idx_generation_logs_hashed_day (hashed_id, created_at)
)`,
}
