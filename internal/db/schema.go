package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- INGESTION BATCH TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS ingestion_batch SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS source_kind ON ingestion_batch TYPE string;
    DEFINE FIELD IF NOT EXISTS source_file ON ingestion_batch TYPE string;
    DEFINE FIELD IF NOT EXISTS uploaded_by ON ingestion_batch TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS status ON ingestion_batch TYPE string DEFAULT "uploaded";
    DEFINE FIELD IF NOT EXISTS total_rows ON ingestion_batch TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS rows_staged ON ingestion_batch TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS items_created ON ingestion_batch TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS items_updated ON ingestion_batch TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS items_skipped ON ingestion_batch TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS items_failed ON ingestion_batch TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS row_errors ON ingestion_batch TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS error ON ingestion_batch TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON ingestion_batch TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS started_at ON ingestion_batch TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS finished_at ON ingestion_batch TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS batch_status ON ingestion_batch FIELDS status;

    -- ==========================================================================
    -- STAGED ITEM TABLE (raw rows, write-once)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS staged_item SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS batch_id ON staged_item TYPE record<ingestion_batch>;
    DEFINE FIELD IF NOT EXISTS seq ON staged_item TYPE int;
    DEFINE FIELD IF NOT EXISTS payload ON staged_item FLEXIBLE TYPE object;

    DEFINE INDEX IF NOT EXISTS staged_batch ON staged_item FIELDS batch_id;

    -- ==========================================================================
    -- CATALOG ITEM TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS catalog_item SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS material_id ON catalog_item TYPE int;
    DEFINE FIELD IF NOT EXISTS title ON catalog_item TYPE string;
    DEFINE FIELD IF NOT EXISTS filename ON catalog_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS department ON catalog_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS faculty_code ON catalog_item TYPE string DEFAULT "UNMAPPED";
    DEFINE FIELD IF NOT EXISTS course_code ON catalog_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS lecturer_name ON catalog_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS file_url ON catalog_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS academic_year ON catalog_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS classification ON catalog_item TYPE string DEFAULT "unanalyzed";
    DEFINE FIELD IF NOT EXISTS workflow_status ON catalog_item TYPE string DEFAULT "inbox";
    DEFINE FIELD IF NOT EXISTS enrichment_status ON catalog_item TYPE string DEFAULT "pending";
    DEFINE FIELD IF NOT EXISTS enrichment_started_at ON catalog_item TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS course_id ON catalog_item TYPE option<record<course>>;
    DEFINE FIELD IF NOT EXISTS lecturer_id ON catalog_item TYPE option<record<person>>;
    DEFINE FIELD IF NOT EXISTS student_count ON catalog_item TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS file_exists ON catalog_item TYPE option<bool>;
    DEFINE FIELD IF NOT EXISTS file_checked_at ON catalog_item TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS document_key ON catalog_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS document_pages ON catalog_item TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS text_quality ON catalog_item TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS classification_suggestion ON catalog_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS last_enriched_at ON catalog_item TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created_at ON catalog_item TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON catalog_item TYPE datetime DEFAULT time::now();

    -- Natural key: one catalog item per material id.
    DEFINE INDEX IF NOT EXISTS item_material_id ON catalog_item FIELDS material_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS item_faculty ON catalog_item FIELDS faculty_code;
    DEFINE INDEX IF NOT EXISTS item_enrichment ON catalog_item FIELDS enrichment_status;

    -- ==========================================================================
    -- CHANGE LOG TABLE (append-only)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS change_log SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS item_id ON change_log TYPE record<catalog_item>;
    DEFINE FIELD IF NOT EXISTS source ON change_log TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON change_log TYPE string;
    DEFINE FIELD IF NOT EXISTS deltas ON change_log TYPE array<object> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS deltas.* ON change_log FLEXIBLE TYPE object;
    DEFINE FIELD IF NOT EXISTS batch_id ON change_log TYPE option<record<ingestion_batch>>;
    DEFINE FIELD IF NOT EXISTS created_at ON change_log TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS log_item ON change_log FIELDS item_id;
    DEFINE INDEX IF NOT EXISTS log_batch ON change_log FIELDS batch_id;

    -- ==========================================================================
    -- ENRICHMENT RUN TABLES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS enrichment_run SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS total ON enrichment_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS started_at ON enrichment_run TYPE datetime DEFAULT time::now();

    DEFINE TABLE IF NOT EXISTS enrichment_result SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS run_id ON enrichment_result TYPE record<enrichment_run>;
    DEFINE FIELD IF NOT EXISTS item_id ON enrichment_result TYPE record<catalog_item>;
    DEFINE FIELD IF NOT EXISTS status ON enrichment_result TYPE string DEFAULT "pending";
    DEFINE FIELD IF NOT EXISTS error ON enrichment_result TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON enrichment_result TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS result_run ON enrichment_result FIELDS run_id;
    DEFINE INDEX IF NOT EXISTS result_status ON enrichment_result FIELDS status;

    -- ==========================================================================
    -- COURSE / PERSON TABLES (enrichment provider results)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS course SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS code ON course TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON course TYPE string;
    DEFINE FIELD IF NOT EXISTS faculty ON course TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS student_count ON course TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS academic_year ON course TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS fetched_at ON course TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS course_code ON course FIELDS code UNIQUE;

    DEFINE TABLE IF NOT EXISTS person SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON person TYPE string;
    DEFINE FIELD IF NOT EXISTS email ON person TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS department ON person TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS fetched_at ON person TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS person_name ON person FIELDS name;

    -- ==========================================================================
    -- BACKGROUND JOB TABLE (process / enrich)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job_type ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON job TYPE string DEFAULT "pending";
    DEFINE FIELD IF NOT EXISTS batch_id ON job TYPE option<record<ingestion_batch>>;
    DEFINE FIELD IF NOT EXISTS run_id ON job TYPE option<record<enrichment_run>>;
    DEFINE FIELD IF NOT EXISTS progress ON job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS total ON job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS result ON job FLEXIBLE TYPE option<object>;
    DEFINE FIELD IF NOT EXISTS error ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started_at ON job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_status ON job FIELDS status;
`
